package repository

import (
	"context"
	"time"

	"blessbox/internal/domain/model"
)

type RegistrationRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Registration) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Registration, error)
	FindByToken(ctx context.Context, tx Tx, token string) (*model.Registration, error)
	ListByQRCodeSet(ctx context.Context, tx Tx, setID string, offset, limit int) ([]*model.Registration, error)
	CountByQRCodeSet(ctx context.Context, tx Tx, setID string) (int, error)

	// CheckIn sets checked_in_at/checked_in_by and token_status='used',
	// guarded by `checked_in_at IS NULL`. Returns false on zero rows, which
	// means a concurrent or earlier check-in won.
	CheckIn(ctx context.Context, tx Tx, id, checkedInBy string, at time.Time) (bool, error)

	// UndoCheckIn clears the check-in fields and reactivates the token,
	// guarded by `checked_in_at IS NOT NULL`.
	UndoCheckIn(ctx context.Context, tx Tx, id string) (bool, error)

	Delete(ctx context.Context, tx Tx, id string) error
}
