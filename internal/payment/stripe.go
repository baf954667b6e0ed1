package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway drives Stripe Checkout sessions.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripe builds a gateway with a bounded HTTP timeout on every
// provider call.
func NewStripe(secretKey, webhookSecret string, timeout time.Duration) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, stripe.NewBackends(&http.Client{Timeout: timeout}))
	return &StripeGateway{api: api, webhookSecret: webhookSecret}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateSession(ctx context.Context, in CreateSessionInput) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.Items))
	for _, item := range in.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(in.Currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata("orderId", in.OrderID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, &ProviderError{Provider: g.Name(), Message: err.Error(), Err: err}
	}

	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, &ProviderError{Provider: g.Name(), Message: err.Error(), Err: err}
	}

	status := &SessionStatus{
		PaymentStatus: stripePaymentStatus(sess),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
	}
	if sess.PaymentIntent != nil {
		status.PaymentID = sess.PaymentIntent.ID
	}
	return status, nil
}

func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, &ProviderError{Provider: g.Name(), Message: "malformed event payload", Err: err}
	}

	out := &Event{
		SessionID: sess.ID,
		OrderID:   sess.Metadata["orderId"],
	}
	if sess.PaymentIntent != nil {
		out.PaymentID = sess.PaymentIntent.ID
	}

	switch event.Type {
	case "checkout.session.completed":
		out.Type = EventSessionCompleted
	case "checkout.session.expired":
		out.Type = EventSessionExpired
	case "checkout.session.async_payment_failed":
		out.Type = EventPaymentFailed
	default:
		out.Type = string(event.Type)
	}
	return out, nil
}

func stripePaymentStatus(sess *stripe.CheckoutSession) string {
	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return StatusPaid
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return StatusExpired
	default:
		return StatusPending
	}
}
