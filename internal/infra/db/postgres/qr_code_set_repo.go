package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/repository"
)

var _ repository.QRCodeSetRepository = (*qrCodeSetRepo)(nil)

type qrCodeSetRepo struct {
	pool *pgxpool.Pool
}

func NewQRCodeSetRepo(pool *pgxpool.Pool) *qrCodeSetRepo {
	return &qrCodeSetRepo{pool: pool}
}

const setColumns = `id, organization_id, name, qr_codes, form_schema, scan_count, created_at, updated_at`

func (r *qrCodeSetRepo) Save(ctx context.Context, tx repository.Tx, set *model.QRCodeSet) error {
	const q = `
INSERT INTO qr_code_sets (
  id, organization_id, name, qr_codes, form_schema, scan_count, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=$3, qr_codes=$4, form_schema=$5, updated_at=now();`

	codes, err := json.Marshal(set.QRCodes)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	schema, err := json.Marshal(set.FormSchema)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	if _, err := execSQL(ctx, r.pool, tx, q, set.ID, set.OrganizationID, set.Name, codes, schema, set.ScanCount, set.CreatedAt, set.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *qrCodeSetRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.QRCodeSet, error) {
	return r.queryOne(ctx, tx, `SELECT `+setColumns+` FROM qr_code_sets WHERE id=$1;`, id)
}

func (r *qrCodeSetRepo) FindByCodeLabel(ctx context.Context, tx repository.Tx, orgID, label string) (*model.QRCodeSet, error) {
	// jsonb containment over the ordered code list; only active codes match.
	const q = `
SELECT ` + setColumns + `
  FROM qr_code_sets
 WHERE organization_id=$1
   AND qr_codes @> jsonb_build_array(jsonb_build_object('label', $2::text, 'isActive', true))
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, orgID, label)
}

func (r *qrCodeSetRepo) ListByOrganization(ctx context.Context, tx repository.Tx, orgID string) ([]*model.QRCodeSet, error) {
	const q = `
SELECT ` + setColumns + `
  FROM qr_code_sets
 WHERE organization_id=$1
 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, orgID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.QRCodeSet
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *qrCodeSetRepo) CountByOrganization(ctx context.Context, tx repository.Tx, orgID string) (int, error) {
	const q = `SELECT COUNT(*) FROM qr_code_sets WHERE organization_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, orgID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *qrCodeSetRepo) IncrementScanCount(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE qr_code_sets SET scan_count = scan_count + 1 WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *qrCodeSetRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.QRCodeSet, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	set, err := scanSetRow(row)
	if err != nil {
		return nil, err
	}
	return set, nil
}

func scanSetRow(row pgx.Row) (*model.QRCodeSet, error) {
	set := &model.QRCodeSet{}
	var codes, schema []byte
	if err := row.Scan(&set.ID, &set.OrganizationID, &set.Name, &codes, &schema, &set.ScanCount, &set.CreatedAt, &set.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(codes, &set.QRCodes); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(schema, &set.FormSchema); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return set, nil
}

func scanSet(rows pgx.Rows) (*model.QRCodeSet, error) {
	return scanSetRow(rows)
}
