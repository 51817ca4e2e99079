package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"blessbox/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway short-circuits checkout for dev mode and tests.
type NoopGateway struct{}

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) CreateCheckout(ctx context.Context, amountCents int64, currency, successURL, cancelURL string, meta map[string]string) (*adapter.CheckoutSession, error) {
	id := "noop_" + uuid.NewString()
	return &adapter.CheckoutSession{
		ID:          id,
		URL:         fmt.Sprintf("https://checkout.invalid/%s", id),
		AmountCents: amountCents,
		Currency:    currency,
	}, nil
}

func (g *NoopGateway) ParseWebhook(payload []byte, signature string) (*adapter.PaymentEvent, error) {
	return nil, fmt.Errorf("noop gateway does not accept webhooks")
}
