package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/adapter"
	"blessbox/internal/domain/ports/repository"
)

// FinalizeReport summarizes one finalizer pass. Per-item failures are
// collected and never abort the batch.
type FinalizeReport struct {
	Finalized int      `json:"finalized"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors,omitempty"`
}

// SubscriptionUseCase owns the plan lifecycle:
// active -> canceling (user request) -> canceled (finalizer only).
type SubscriptionUseCase struct {
	subs    repository.SubscriptionRepository
	coupons *CouponUseCase
	gateway adapter.PaymentGateway
	now     func() time.Time
	log     *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, coupons *CouponUseCase, gateway adapter.PaymentGateway, logger *zerolog.Logger) *SubscriptionUseCase {
	l := logger.With().Str("component", "SubscriptionUseCase").Logger()
	return &SubscriptionUseCase{subs: subs, coupons: coupons, gateway: gateway, now: time.Now, log: &l}
}

// Get returns the organization's subscription.
func (uc *SubscriptionUseCase) Get(ctx context.Context, orgID string) (*model.Subscription, error) {
	return uc.subs.FindByOrganization(ctx, repository.NoTX, orgID)
}

// Cancel transitions active -> canceling. Access continues until the paid
// period end; the finalizer performs the terminal transition later.
func (uc *SubscriptionUseCase) Cancel(ctx context.Context, orgID string) (*model.Subscription, error) {
	sub, err := uc.subs.FindByOrganization(ctx, repository.NoTX, orgID)
	if err != nil {
		return nil, err
	}
	switch sub.Status {
	case model.SubscriptionStatusCanceled:
		return nil, domain.ErrAlreadyCanceled
	case model.SubscriptionStatusCanceling:
		return sub, nil // already requested; idempotent
	}
	periodEnd := uc.now()
	if sub.CurrentPeriodEnd != nil {
		periodEnd = *sub.CurrentPeriodEnd
	}
	ok, err := uc.subs.MarkCanceling(ctx, repository.NoTX, sub.ID, periodEnd)
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost a race with another cancellation request
		return uc.subs.FindByOrganization(ctx, repository.NoTX, orgID)
	}
	sub.Status = model.SubscriptionStatusCanceling
	sub.CurrentPeriodEnd = &periodEnd
	return sub, nil
}

// FindExpiredCancellations is a pure read used by the finalizer; it never
// mutates.
func (uc *SubscriptionUseCase) FindExpiredCancellations(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	return uc.subs.FindExpiredCancellations(ctx, repository.NoTX, now)
}

// FinalizeCancellation converts one canceling subscription to canceled and
// reverts the organization to free-tier limits. Idempotent: re-running on an
// already-canceled subscription is a no-op because the repository guard
// matches only `status='canceling' AND current_period_end < now`.
func (uc *SubscriptionUseCase) FinalizeCancellation(ctx context.Context, subID string, now time.Time) error {
	ok, err := uc.subs.FinalizeCancellation(ctx, repository.NoTX, subID, now)
	if err != nil {
		return err
	}
	if ok {
		uc.log.Info().Str("subscription_id", subID).Msg("cancellation finalized")
		return nil
	}
	// Zero rows: either gone, already canceled, or not yet due. Only a
	// missing row is an error.
	if _, err := uc.subs.FindByID(ctx, repository.NoTX, subID); err != nil {
		return err
	}
	return nil
}

// FinalizeExpired runs one finalizer pass. Each subscription is processed
// independently: a failure is recorded and the batch continues.
func (uc *SubscriptionUseCase) FinalizeExpired(ctx context.Context, now time.Time) (*FinalizeReport, error) {
	expired, err := uc.subs.FindExpiredCancellations(ctx, repository.NoTX, now)
	if err != nil {
		return nil, err
	}
	report := &FinalizeReport{Total: len(expired)}
	for _, sub := range expired {
		if err := uc.FinalizeCancellation(ctx, sub.ID, now); err != nil {
			uc.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("finalize failed")
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", sub.ID, err))
			continue
		}
		report.Finalized++
	}
	return report, nil
}

// UpgradeResult is what the upgrade endpoint returns: either a checkout URL
// to complete payment, or an immediately activated subscription when the
// discounted amount is zero.
type UpgradeResult struct {
	CheckoutURL  string              `json:"checkoutUrl,omitempty"`
	Subscription *model.Subscription `json:"subscription,omitempty"`
	AmountCents  int64               `json:"amountCents"`
}

// Upgrade prices the target plan, applies an optional coupon (recording the
// redemption), and starts a hosted checkout. A fully discounted upgrade
// activates immediately without touching the gateway.
func (uc *SubscriptionUseCase) Upgrade(ctx context.Context, orgID string, pt model.PlanType, couponCode, successURL, cancelURL string) (*UpgradeResult, error) {
	if !pt.Valid() || pt == model.PlanFree {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := uc.subs.FindByOrganization(ctx, repository.NoTX, orgID)
	if err != nil {
		return nil, err
	}
	amount := model.PriceCentsFor(pt)
	if couponCode != "" {
		applied, err := uc.coupons.Apply(ctx, couponCode, amount, pt)
		if err != nil {
			return nil, err
		}
		if _, err := uc.coupons.Redeem(ctx, couponCode, orgID, sub.ID); err != nil {
			return nil, err
		}
		amount = applied.DiscountedAmountCents
	}
	if amount == 0 {
		updated, err := uc.ActivatePlan(ctx, orgID, pt)
		if err != nil {
			return nil, err
		}
		return &UpgradeResult{Subscription: updated, AmountCents: 0}, nil
	}
	session, err := uc.gateway.CreateCheckout(ctx, amount, "usd", successURL, cancelURL, map[string]string{
		"organization_id": orgID,
		"plan_type":       string(pt),
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}
	return &UpgradeResult{CheckoutURL: session.URL, AmountCents: amount}, nil
}

// ActivatePlan writes the new plan onto the organization's subscription row.
// Called after payment confirmation (webhook) or directly for free upgrades.
// An active -> active plan change is not a lifecycle transition.
func (uc *SubscriptionUseCase) ActivatePlan(ctx context.Context, orgID string, pt model.PlanType) (*model.Subscription, error) {
	if !pt.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := uc.now()
	periodEnd := now.AddDate(0, 1, 0)
	sub, err := uc.subs.FindByOrganization(ctx, repository.NoTX, orgID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		sub, err = model.NewSubscription(uuid.NewString(), orgID, pt, &periodEnd)
		if err != nil {
			return nil, err
		}
		if err := uc.subs.Save(ctx, repository.NoTX, sub); err != nil {
			return nil, err
		}
		return sub, nil
	}
	sub.PlanType = pt
	sub.Status = model.SubscriptionStatusActive
	sub.RegistrationLimit = model.LimitsFor(pt).Registrations
	sub.CurrentPeriodEnd = &periodEnd
	sub.UpdatedAt = now
	if err := uc.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// HandlePaymentEvent persists the subscription state resulting from a
// verified provider webhook. Failed payments are logged only.
func (uc *SubscriptionUseCase) HandlePaymentEvent(ctx context.Context, ev *adapter.PaymentEvent) error {
	switch ev.Type {
	case adapter.PaymentEventCheckoutCompleted:
		_, err := uc.ActivatePlan(ctx, ev.OrganizationID, model.PlanType(ev.PlanType))
		return err
	case adapter.PaymentEventPaymentFailed:
		uc.log.Warn().Str("org_id", ev.OrganizationID).Str("session_id", ev.SessionID).Msg("payment failed")
		return nil
	default:
		return nil
	}
}
