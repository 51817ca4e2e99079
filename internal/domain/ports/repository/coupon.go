package repository

import (
	"context"

	"blessbox/internal/domain/model"
)

type CouponRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Coupon) error

	// FindByCode looks up by normalized (uppercase) code.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Coupon, error)

	// IncrementUses performs the conditional increment
	//   UPDATE coupons SET current_uses = current_uses + 1
	//    WHERE id = $1 AND (max_uses IS NULL OR current_uses < max_uses)
	// and reports whether a row was affected. This, not read-then-write, is
	// what keeps capped coupons from overrunning under concurrent redemption.
	IncrementUses(ctx context.Context, tx Tx, id string) (bool, error)

	SaveRedemption(ctx context.Context, tx Tx, r *model.CouponRedemption) error
	CountRedemptionsByOrg(ctx context.Context, tx Tx, orgID string) (int, error)
}
