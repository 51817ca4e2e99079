package repository

import (
	"context"

	"blessbox/internal/domain/model"
)

type QRCodeSetRepository interface {
	Save(ctx context.Context, tx Tx, set *model.QRCodeSet) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.QRCodeSet, error)
	// FindByCodeLabel resolves the set containing an active QR code with the
	// given label within an organization.
	FindByCodeLabel(ctx context.Context, tx Tx, orgID, label string) (*model.QRCodeSet, error)
	ListByOrganization(ctx context.Context, tx Tx, orgID string) ([]*model.QRCodeSet, error)
	CountByOrganization(ctx context.Context, tx Tx, orgID string) (int, error)

	// IncrementScanCount is best-effort usage tracking.
	IncrementScanCount(ctx context.Context, tx Tx, id string) error
}
