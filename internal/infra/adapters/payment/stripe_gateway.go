package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"blessbox/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

// StripeGateway drives hosted checkout for plan upgrades. The core never
// sees provider types: checkout metadata carries the organization and plan
// through to the webhook, where the event is verified and flattened.
type StripeGateway struct {
	sc            *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe: secret key is required")
	}
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{sc: sc, webhookSecret: webhookSecret}, nil
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateCheckout(ctx context.Context, amountCents int64, currency, successURL, cancelURL string, meta map[string]string) (*adapter.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(amountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("BlessBox subscription"),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	for k, v := range meta {
		params.AddMetadata(k, v)
	}

	cs, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout: %w", err)
	}
	return &adapter.CheckoutSession{
		ID:          cs.ID,
		URL:         cs.URL,
		AmountCents: amountCents,
		Currency:    currency,
	}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*adapter.PaymentEvent, error) {
	evt, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe webhook: %w", err)
	}

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("stripe webhook: decode session: %w", err)
		}
		return &adapter.PaymentEvent{
			Type:           adapter.PaymentEventCheckoutCompleted,
			SessionID:      cs.ID,
			OrganizationID: cs.Metadata["organization_id"],
			PlanType:       cs.Metadata["plan_type"],
			AmountCents:    cs.AmountTotal,
			OccurredAt:     time.Unix(evt.Created, 0),
		}, nil
	case stripe.EventTypeCheckoutSessionExpired, stripe.EventTypePaymentIntentPaymentFailed:
		var cs stripe.CheckoutSession
		_ = json.Unmarshal(evt.Data.Raw, &cs)
		return &adapter.PaymentEvent{
			Type:           adapter.PaymentEventPaymentFailed,
			SessionID:      cs.ID,
			OrganizationID: cs.Metadata["organization_id"],
			PlanType:       cs.Metadata["plan_type"],
			OccurredAt:     time.Unix(evt.Created, 0),
		}, nil
	default:
		// events the core does not persist
		return &adapter.PaymentEvent{OccurredAt: time.Unix(evt.Created, 0)}, nil
	}
}
