package usecase

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"blessbox/internal/domain/model"
	"blessbox/internal/domain/ports/repository"
)

// Action names a limit-gated operation.
type Action string

const (
	ActionRegistration Action = "registration"
	ActionExport       Action = "export"
	ActionCreateQRSet  Action = "create_qr_set"
)

// UsageStats summarizes an organization's consumption against its plan.
type UsageStats struct {
	CurrentPlan       model.PlanType `json:"currentPlan"`
	RegistrationCount int            `json:"registrationCount"`
	RegistrationLimit int            `json:"registrationLimit"`
	UsagePercentage   float64        `json:"usagePercentage"`
	IsLimitReached    bool           `json:"isLimitReached"`
	IsNearLimit       bool           `json:"isNearLimit"`
}

// UsageUseCase reads plan limits and records best-effort usage counters.
// Tracking never fails the operation that triggered it: once the action has
// happened, a lost counter increment is logged and swallowed.
type UsageUseCase struct {
	subs repository.SubscriptionRepository
	sets repository.QRCodeSetRepository
	log  *zerolog.Logger
}

func NewUsageUseCase(subs repository.SubscriptionRepository, sets repository.QRCodeSetRepository, logger *zerolog.Logger) *UsageUseCase {
	l := logger.With().Str("component", "UsageUseCase").Logger()
	return &UsageUseCase{subs: subs, sets: sets, log: &l}
}

// Stats computes current usage. Unlimited plans report 0% and never reach
// the limit; isNearLimit trips at 80% of the cap.
func (uc *UsageUseCase) Stats(ctx context.Context, orgID string) (*UsageStats, error) {
	sub, err := uc.subs.FindByOrganization(ctx, repository.NoTX, orgID)
	if err != nil {
		return nil, err
	}
	stats := &UsageStats{
		CurrentPlan:       sub.PlanType,
		RegistrationCount: sub.RegistrationCount,
		RegistrationLimit: sub.RegistrationLimit,
	}
	if sub.RegistrationLimit == model.Unlimited {
		return stats, nil
	}
	if sub.RegistrationLimit > 0 {
		pct := float64(sub.RegistrationCount) / float64(sub.RegistrationLimit) * 100
		stats.UsagePercentage = math.Round(pct*100) / 100
	}
	stats.IsLimitReached = sub.RegistrationCount >= sub.RegistrationLimit
	stats.IsNearLimit = float64(sub.RegistrationCount) >= 0.8*float64(sub.RegistrationLimit)
	return stats, nil
}

// CanPerform gates an action against the plan's static caps.
func (uc *UsageUseCase) CanPerform(ctx context.Context, orgID string, action Action) (bool, error) {
	sub, err := uc.subs.FindByOrganization(ctx, repository.NoTX, orgID)
	if err != nil {
		return false, err
	}
	limits := model.LimitsFor(sub.PlanType)
	switch action {
	case ActionRegistration:
		if sub.RegistrationLimit == model.Unlimited {
			return true, nil
		}
		return sub.RegistrationCount < sub.RegistrationLimit, nil
	case ActionExport:
		if limits.Exports == model.Unlimited {
			return true, nil
		}
		return sub.ExportCount < limits.Exports, nil
	case ActionCreateQRSet:
		if limits.QRCodeSets == model.Unlimited {
			return true, nil
		}
		n, err := uc.sets.CountByOrganization(ctx, repository.NoTX, orgID)
		if err != nil {
			return false, err
		}
		return n < limits.QRCodeSets, nil
	default:
		return false, nil
	}
}

// TrackRegistration increments the registration counter, best effort.
func (uc *UsageUseCase) TrackRegistration(ctx context.Context, orgID string) {
	if err := uc.subs.IncrementRegistrationCount(ctx, repository.NoTX, orgID); err != nil {
		uc.log.Warn().Err(err).Str("org_id", orgID).Msg("registration tracking failed")
	}
}

// TrackExport increments the export counter, best effort.
func (uc *UsageUseCase) TrackExport(ctx context.Context, orgID string) {
	if err := uc.subs.IncrementExportCount(ctx, repository.NoTX, orgID); err != nil {
		uc.log.Warn().Err(err).Str("org_id", orgID).Msg("export tracking failed")
	}
}

// TrackQRCodeScan increments a set's scan counter, best effort.
func (uc *UsageUseCase) TrackQRCodeScan(ctx context.Context, setID string) {
	if err := uc.sets.IncrementScanCount(ctx, repository.NoTX, setID); err != nil {
		uc.log.Warn().Err(err).Str("qr_code_set_id", setID).Msg("scan tracking failed")
	}
}
