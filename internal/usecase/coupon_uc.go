package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/repository"
)

// CouponValidation is the outcome of a lookup. Invalid coupons are a normal
// result, not an error: the HTTP layer returns them as 200 with valid:false
// so the UI can render inline feedback.
type CouponValidation struct {
	Valid  bool
	Coupon *model.Coupon
	Reason string // not_found | expired | exhausted | plan_mismatch
}

// CouponApplication is the priced result of applying a valid coupon.
type CouponApplication struct {
	Coupon               *model.Coupon
	DiscountedAmountCents int64
	DiscountAppliedCents  int64
}

// CouponUseCase implements coupon validation, pricing and atomic redemption.
type CouponUseCase struct {
	coupons repository.CouponRepository
	tm      repository.TransactionManager
	now     func() time.Time
}

func NewCouponUseCase(coupons repository.CouponRepository, tm repository.TransactionManager) *CouponUseCase {
	return &CouponUseCase{coupons: coupons, tm: tm, now: time.Now}
}

// Validate checks a code without touching usage counters.
// Lookup is case-insensitive: codes are normalized to uppercase.
func (uc *CouponUseCase) Validate(ctx context.Context, code string) (*CouponValidation, error) {
	c, err := uc.coupons.FindByCode(ctx, repository.NoTX, model.NormalizeCouponCode(code))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &CouponValidation{Valid: false, Reason: "not_found"}, nil
		}
		return nil, err
	}
	if err := c.Validate(uc.now()); err != nil {
		return &CouponValidation{Valid: false, Coupon: c, Reason: reasonFor(err)}, nil
	}
	return &CouponValidation{Valid: true, Coupon: c}, nil
}

// Apply revalidates the coupon, additionally enforcing the plan restriction,
// and computes the discounted amount. Never returns a negative amount.
// Invalid coupons yield a typed error identifying the reason.
func (uc *CouponUseCase) Apply(ctx context.Context, code string, amountCents int64, planType model.PlanType) (*CouponApplication, error) {
	if amountCents < 0 {
		return nil, domain.ErrInvalidArgument
	}
	c, err := uc.coupons.FindByCode(ctx, repository.NoTX, model.NormalizeCouponCode(code))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, err
	}
	if err := c.Validate(uc.now()); err != nil {
		return nil, err
	}
	if !c.AppliesTo(planType) {
		return nil, domain.ErrCouponPlanMismatch
	}
	discounted := c.Discount(amountCents)
	return &CouponApplication{
		Coupon:                c,
		DiscountedAmountCents: discounted,
		DiscountAppliedCents:  amountCents - discounted,
	}, nil
}

// Redeem consumes one use of the coupon for the given subscription and
// records the redemption. The increment is a conditional UPDATE checked by
// affected-row count, so two concurrent redemptions of a coupon at
// current_uses = max_uses-1 cannot both succeed.
func (uc *CouponUseCase) Redeem(ctx context.Context, code, orgID, subscriptionID string) (*model.CouponRedemption, error) {
	if orgID == "" || subscriptionID == "" {
		return nil, domain.ErrInvalidArgument
	}
	var redemption *model.CouponRedemption
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		c, err := uc.coupons.FindByCode(ctx, tx, model.NormalizeCouponCode(code))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrCouponNotFound
			}
			return err
		}
		if err := c.Validate(uc.now()); err != nil {
			return err
		}
		ok, err := uc.coupons.IncrementUses(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrCouponExhausted
		}
		redemption = &model.CouponRedemption{
			ID:             uuid.NewString(),
			CouponID:       c.ID,
			OrganizationID: orgID,
			SubscriptionID: subscriptionID,
			RedeemedAt:     uc.now(),
		}
		return uc.coupons.SaveRedemption(ctx, tx, redemption)
	})
	if err != nil {
		return nil, err
	}
	return redemption, nil
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrCouponExpired):
		return "expired"
	case errors.Is(err, domain.ErrCouponExhausted):
		return "exhausted"
	case errors.Is(err, domain.ErrCouponPlanMismatch):
		return "plan_mismatch"
	default:
		return "invalid"
	}
}
