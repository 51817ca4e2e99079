package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/repository"
)

var _ repository.OrganizationRepository = (*organizationRepo)(nil)

type organizationRepo struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepo(pool *pgxpool.Pool) *organizationRepo {
	return &organizationRepo{pool: pool}
}

func (r *organizationRepo) Save(ctx context.Context, tx repository.Tx, org *model.Organization) error {
	const q = `
INSERT INTO organizations (
  id, name, slug, contact_email, verified, custom_domain, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=$2, slug=$3, contact_email=$4, verified=$5, custom_domain=$6, updated_at=now();`

	_, err := execSQL(ctx, r.pool, tx, q, org.ID, org.Name, org.Slug, org.ContactEmail, org.Verified, org.CustomDomain, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *organizationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Organization, error) {
	const q = `
SELECT id, name, slug, contact_email, verified, custom_domain, created_at, updated_at
  FROM organizations WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *organizationRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Organization, error) {
	const q = `
SELECT id, name, slug, contact_email, verified, custom_domain, created_at, updated_at
  FROM organizations WHERE slug=$1;`
	return r.queryOne(ctx, tx, q, slug)
}

func (r *organizationRepo) FindByContactEmail(ctx context.Context, tx repository.Tx, email string) (*model.Organization, error) {
	const q = `
SELECT id, name, slug, contact_email, verified, custom_domain, created_at, updated_at
  FROM organizations WHERE lower(contact_email)=lower($1);`
	return r.queryOne(ctx, tx, q, email)
}

func (r *organizationRepo) MarkVerified(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE organizations SET verified=true, updated_at=now() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *organizationRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `SELECT COUNT(*) FROM organizations;`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *organizationRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.Organization, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	org := &model.Organization{}
	if err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.ContactEmail, &org.Verified, &org.CustomDomain, &org.CreatedAt, &org.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return org, nil
}
