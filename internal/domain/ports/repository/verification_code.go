package repository

import (
	"context"

	"blessbox/internal/domain/model"
)

type VerificationCodeRepository interface {
	// Save upserts by email: each new send supersedes the previous code.
	Save(ctx context.Context, tx Tx, vc *model.VerificationCode) error
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.VerificationCode, error)
	IncrementAttempts(ctx context.Context, tx Tx, email string) error
	Delete(ctx context.Context, tx Tx, email string) error
}
