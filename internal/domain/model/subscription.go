package model

import (
	"time"

	"blessbox/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCanceling SubscriptionStatus = "canceling"
	SubscriptionStatusCanceled  SubscriptionStatus = "canceled"
)

// Subscription is an organization's plan row. Lifecycle:
// active -> canceling (user cancellation request, access until period end)
// canceling -> canceled (finalizer only, once current_period_end has passed).
// A plan change is active -> active with a new plan type.
type Subscription struct {
	ID                string // UUID
	OrganizationID    string // UUID
	PlanType          PlanType
	Status            SubscriptionStatus
	RegistrationLimit int
	RegistrationCount int
	ExportCount       int
	CurrentPeriodEnd  *time.Time // nil for free plans with no billing period
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewSubscription creates an active subscription with the tier's limits.
func NewSubscription(id, orgID string, pt PlanType, periodEnd *time.Time) (*Subscription, error) {
	if id == "" || orgID == "" || !pt.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:                id,
		OrganizationID:    orgID,
		PlanType:          pt,
		Status:            SubscriptionStatusActive,
		RegistrationLimit: LimitsFor(pt).Registrations,
		CurrentPeriodEnd:  periodEnd,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}
