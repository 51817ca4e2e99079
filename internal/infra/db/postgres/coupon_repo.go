package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/repository"
)

var _ repository.CouponRepository = (*couponRepo)(nil)

type couponRepo struct {
	pool *pgxpool.Pool
}

func NewCouponRepo(pool *pgxpool.Pool) *couponRepo {
	return &couponRepo{pool: pool}
}

func (r *couponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	const q = `
INSERT INTO coupons (
  id, code, discount_type, discount_value, currency, max_uses, current_uses, expires_at, applicable_plans, created_by, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  discount_type=$3, discount_value=$4, currency=$5, max_uses=$6, expires_at=$8, applicable_plans=$9;`

	plans := make([]string, len(c.ApplicablePlans))
	for i, p := range c.ApplicablePlans {
		plans[i] = string(p)
	}
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.Code, c.DiscountType, c.DiscountValue, c.Currency, c.MaxUses, c.CurrentUses, c.ExpiresAt, plans, c.CreatedBy, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *couponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	const q = `
SELECT id, code, discount_type, discount_value, currency, max_uses, current_uses, expires_at, applicable_plans, created_by, created_at
  FROM coupons
 WHERE code = upper($1);`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	c := &model.Coupon{}
	var discountType string
	var plans []string
	if err := row.Scan(&c.ID, &c.Code, &discountType, &c.DiscountValue, &c.Currency, &c.MaxUses, &c.CurrentUses, &c.ExpiresAt, &plans, &c.CreatedBy, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	c.DiscountType = model.DiscountType(discountType)
	for _, p := range plans {
		c.ApplicablePlans = append(c.ApplicablePlans, model.PlanType(p))
	}
	return c, nil
}

// IncrementUses is the concurrency guard for capped coupons: the WHERE
// clause rejects the increment once current_uses has reached max_uses, and
// the affected-row count tells the caller who won.
func (r *couponRepo) IncrementUses(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE coupons
   SET current_uses = current_uses + 1
 WHERE id = $1
   AND (max_uses IS NULL OR current_uses < max_uses);`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() > 0, nil
}

func (r *couponRepo) SaveRedemption(ctx context.Context, tx repository.Tx, red *model.CouponRedemption) error {
	const q = `
INSERT INTO coupon_redemptions (id, coupon_id, organization_id, subscription_id, redeemed_at)
VALUES ($1,$2,$3,$4,$5);`
	_, err := execSQL(ctx, r.pool, tx, q, red.ID, red.CouponID, red.OrganizationID, red.SubscriptionID, red.RedeemedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *couponRepo) CountRedemptionsByOrg(ctx context.Context, tx repository.Tx, orgID string) (int, error) {
	const q = `SELECT COUNT(*) FROM coupon_redemptions WHERE organization_id=$1;`
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
