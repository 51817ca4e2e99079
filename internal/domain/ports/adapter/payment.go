package adapter

import (
	"context"
	"time"
)

// CheckoutSession is a minimal, provider-agnostic handle on a hosted
// checkout started for a plan upgrade.
type CheckoutSession struct {
	ID          string // provider session id
	URL         string // redirect URL for the customer
	AmountCents int64
	Currency    string
}

// PaymentEventType classifies webhook events the core cares about.
type PaymentEventType string

const (
	PaymentEventCheckoutCompleted PaymentEventType = "checkout.completed"
	PaymentEventPaymentFailed     PaymentEventType = "payment.failed"
)

// PaymentEvent is the parsed, verified result of a provider webhook.
// The core only persists resulting subscription state.
type PaymentEvent struct {
	Type           PaymentEventType
	SessionID      string
	OrganizationID string // from session metadata
	PlanType       string
	AmountCents    int64
	OccurredAt     time.Time
}

// PaymentGateway is the hex port for the payment provider.
type PaymentGateway interface {
	Name() string

	// CreateCheckout starts a hosted checkout for the given amount. Metadata
	// must round-trip to the webhook so the event can be tied back to an
	// organization and plan.
	CreateCheckout(ctx context.Context, amountCents int64, currency, successURL, cancelURL string, meta map[string]string) (*CheckoutSession, error)

	// ParseWebhook verifies the provider signature and decodes the payload.
	ParseWebhook(payload []byte, signature string) (*PaymentEvent, error)
}
