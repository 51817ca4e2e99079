package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/repository"
)

var _ repository.RegistrationRepository = (*registrationRepo)(nil)

type registrationRepo struct {
	pool *pgxpool.Pool
}

func NewRegistrationRepo(pool *pgxpool.Pool) *registrationRepo {
	return &registrationRepo{pool: pool}
}

const regColumns = `id, qr_code_set_id, qr_code_id, registration_data, registered_at, check_in_token, token_status, checked_in_at, checked_in_by`

func (r *registrationRepo) Save(ctx context.Context, tx repository.Tx, reg *model.Registration) error {
	const q = `
INSERT INTO registrations (
  id, qr_code_set_id, qr_code_id, registration_data, registered_at, check_in_token, token_status, checked_in_at, checked_in_by
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	data, err := json.Marshal(reg.Data)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	var checkedInBy interface{}
	if reg.CheckedInBy != "" {
		checkedInBy = reg.CheckedInBy
	}
	if _, err := execSQL(ctx, r.pool, tx, q, reg.ID, reg.QRCodeSetID, reg.QRCodeID, data, reg.RegisteredAt, reg.CheckInToken, reg.TokenStatus, reg.CheckedInAt, checkedInBy); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *registrationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Registration, error) {
	return r.queryOne(ctx, tx, `SELECT `+regColumns+` FROM registrations WHERE id=$1;`, id)
}

func (r *registrationRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.Registration, error) {
	return r.queryOne(ctx, tx, `SELECT `+regColumns+` FROM registrations WHERE check_in_token=$1;`, token)
}

func (r *registrationRepo) ListByQRCodeSet(ctx context.Context, tx repository.Tx, setID string, offset, limit int) ([]*model.Registration, error) {
	const q = `
SELECT ` + regColumns + `
  FROM registrations
 WHERE qr_code_set_id=$1
 ORDER BY registered_at DESC
 OFFSET $2 LIMIT $3;`
	// LIMIT NULL means no limit
	var lim interface{}
	if limit > 0 {
		lim = limit
	}
	rows, err := queryRows(ctx, r.pool, tx, q, setID, offset, lim)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.Registration
	for rows.Next() {
		reg, err := scanReg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *registrationRepo) CountByQRCodeSet(ctx context.Context, tx repository.Tx, setID string) (int, error) {
	const q = `SELECT COUNT(*) FROM registrations WHERE qr_code_set_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, setID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

// CheckIn is guarded by `checked_in_at IS NULL`: two simultaneous attempts
// on the same registration resolve to exactly one affected row.
func (r *registrationRepo) CheckIn(ctx context.Context, tx repository.Tx, id, checkedInBy string, at time.Time) (bool, error) {
	const q = `
UPDATE registrations
   SET checked_in_at=$2, checked_in_by=$3, token_status='used'
 WHERE id=$1 AND checked_in_at IS NULL;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at, checkedInBy)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() > 0, nil
}

func (r *registrationRepo) UndoCheckIn(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE registrations
   SET checked_in_at=NULL, checked_in_by=NULL, token_status='active'
 WHERE id=$1 AND checked_in_at IS NOT NULL;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() > 0, nil
}

func (r *registrationRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM registrations WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *registrationRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.Registration, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	return scanRegRow(row)
}

func scanRegRow(row pgx.Row) (*model.Registration, error) {
	reg := &model.Registration{}
	var data []byte
	var tokenStatus string
	var checkedInBy *string
	if err := row.Scan(&reg.ID, &reg.QRCodeSetID, &reg.QRCodeID, &data, &reg.RegisteredAt, &reg.CheckInToken, &tokenStatus, &reg.CheckedInAt, &checkedInBy); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(data, &reg.Data); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	reg.TokenStatus = model.TokenStatus(tokenStatus)
	if checkedInBy != nil {
		reg.CheckedInBy = *checkedInBy
	}
	return reg, nil
}

func scanReg(rows pgx.Rows) (*model.Registration, error) {
	return scanRegRow(rows)
}
