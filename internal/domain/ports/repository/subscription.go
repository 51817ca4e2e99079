package repository

import (
	"context"
	"time"

	"blessbox/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByOrganization(ctx context.Context, tx Tx, orgID string) (*model.Subscription, error)

	// MarkCanceling flips an active subscription to canceling with the given
	// period end. Returns false when the row was not active.
	MarkCanceling(ctx context.Context, tx Tx, id string, periodEnd time.Time) (bool, error)

	// FindExpiredCancellations is a pure read: canceling subscriptions whose
	// current_period_end is before now.
	FindExpiredCancellations(ctx context.Context, tx Tx, now time.Time) ([]*model.Subscription, error)

	// FinalizeCancellation converts canceling -> canceled and reverts the row
	// to free-tier limits, guarded by `status='canceling' AND
	// current_period_end < now`. Returns false when no row matched (already
	// finalized or not due), which callers treat as a no-op.
	FinalizeCancellation(ctx context.Context, tx Tx, id string, now time.Time) (bool, error)

	// IncrementRegistrationCount / IncrementExportCount bump usage counters.
	// Best-effort callers log and continue on error.
	IncrementRegistrationCount(ctx context.Context, tx Tx, orgID string) error
	IncrementExportCount(ctx context.Context, tx Tx, orgID string) error

	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
