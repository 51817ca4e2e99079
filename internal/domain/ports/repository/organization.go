package repository

import (
	"context"

	"blessbox/internal/domain/model"
)

type OrganizationRepository interface {
	Save(ctx context.Context, tx Tx, org *model.Organization) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Organization, error)
	FindBySlug(ctx context.Context, tx Tx, slug string) (*model.Organization, error)
	FindByContactEmail(ctx context.Context, tx Tx, email string) (*model.Organization, error)
	// MarkVerified flips the verification flag after a successful email check.
	MarkVerified(ctx context.Context, tx Tx, id string) error
	Count(ctx context.Context, tx Tx) (int, error)
}
