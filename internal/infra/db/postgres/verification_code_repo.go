package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/repository"
)

var _ repository.VerificationCodeRepository = (*verificationCodeRepo)(nil)

type verificationCodeRepo struct {
	pool *pgxpool.Pool
}

func NewVerificationCodeRepo(pool *pgxpool.Pool) *verificationCodeRepo {
	return &verificationCodeRepo{pool: pool}
}

// Save upserts by email: a new send replaces the previous code and resets
// attempts.
func (r *verificationCodeRepo) Save(ctx context.Context, tx repository.Tx, vc *model.VerificationCode) error {
	const q = `
INSERT INTO verification_codes (email, code, created_at, expires_at, verified, attempts)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (email) DO UPDATE SET
  code=$2, created_at=$3, expires_at=$4, verified=$5, attempts=$6;`
	if _, err := execSQL(ctx, r.pool, tx, q, vc.Email, vc.Code, vc.CreatedAt, vc.ExpiresAt, vc.Verified, vc.Attempts); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *verificationCodeRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.VerificationCode, error) {
	const q = `
SELECT email, code, created_at, expires_at, verified, attempts
  FROM verification_codes WHERE email=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, email)
	if err != nil {
		return nil, err
	}
	vc := &model.VerificationCode{}
	if err := row.Scan(&vc.Email, &vc.Code, &vc.CreatedAt, &vc.ExpiresAt, &vc.Verified, &vc.Attempts); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return vc, nil
}

func (r *verificationCodeRepo) IncrementAttempts(ctx context.Context, tx repository.Tx, email string) error {
	const q = `UPDATE verification_codes SET attempts = attempts + 1 WHERE email=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, email); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *verificationCodeRepo) Delete(ctx context.Context, tx repository.Tx, email string) error {
	const q = `DELETE FROM verification_codes WHERE email=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, email); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}
