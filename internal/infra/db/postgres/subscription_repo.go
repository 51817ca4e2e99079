package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `id, organization_id, plan_type, status, registration_limit, registration_count, export_count, current_period_end, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscription_plans (
  id, organization_id, plan_type, status, registration_limit, registration_count, export_count, current_period_end, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  plan_type=$3, status=$4, registration_limit=$5, registration_count=$6, export_count=$7, current_period_end=$8, updated_at=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.OrganizationID, s.PlanType, s.Status, s.RegistrationLimit, s.RegistrationCount, s.ExportCount, s.CurrentPeriodEnd, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	return r.queryOne(ctx, tx, `SELECT `+subColumns+` FROM subscription_plans WHERE id=$1;`, id)
}

func (r *subscriptionRepo) FindByOrganization(ctx context.Context, tx repository.Tx, orgID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM subscription_plans
 WHERE organization_id=$1
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, orgID)
}

func (r *subscriptionRepo) MarkCanceling(ctx context.Context, tx repository.Tx, id string, periodEnd time.Time) (bool, error) {
	const q = `
UPDATE subscription_plans
   SET status='canceling', current_period_end=$2, updated_at=now()
 WHERE id=$1 AND status='active';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, periodEnd)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() > 0, nil
}

func (r *subscriptionRepo) FindExpiredCancellations(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM subscription_plans
 WHERE status='canceling' AND current_period_end < $1
 ORDER BY current_period_end ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, now)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriptionRepo) FinalizeCancellation(ctx context.Context, tx repository.Tx, id string, now time.Time) (bool, error) {
	// Terminal transition plus reversion to free-tier limits in one guarded
	// statement; zero affected rows means already finalized or not due.
	const q = `
UPDATE subscription_plans
   SET status='canceled', plan_type='free', registration_limit=$3, updated_at=now()
 WHERE id=$1 AND status='canceling' AND current_period_end < $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, now, model.LimitsFor(model.PlanFree).Registrations)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() > 0, nil
}

func (r *subscriptionRepo) IncrementRegistrationCount(ctx context.Context, tx repository.Tx, orgID string) error {
	const q = `
UPDATE subscription_plans
   SET registration_count = registration_count + 1, updated_at=now()
 WHERE organization_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, orgID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) IncrementExportCount(ctx context.Context, tx repository.Tx, orgID string) error {
	const q = `
UPDATE subscription_plans
   SET export_count = export_count + 1, updated_at=now()
 WHERE organization_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, orgID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM subscription_plans GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	counts := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[model.SubscriptionStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return counts, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	s := &model.Subscription{}
	var planType, status string
	if err := row.Scan(&s.ID, &s.OrganizationID, &planType, &status, &s.RegistrationLimit, &s.RegistrationCount, &s.ExportCount, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.PlanType = model.PlanType(planType)
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}

func scanSub(rows pgx.Rows) (*model.Subscription, error) {
	s := &model.Subscription{}
	var planType, status string
	if err := rows.Scan(&s.ID, &s.OrganizationID, &planType, &status, &s.RegistrationLimit, &s.RegistrationCount, &s.ExportCount, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	s.PlanType = model.PlanType(planType)
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}
