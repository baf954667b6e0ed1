package payment

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// RazorpayGateway drives Razorpay orders. Checkout itself runs in the
// client widget, so sessions carry no redirect URL.
type RazorpayGateway struct {
	client        *razorpay.Client
	webhookSecret string
	timeout       time.Duration
}

func NewRazorpay(keyID, keySecret, webhookSecret string, timeout time.Duration) *RazorpayGateway {
	return &RazorpayGateway{
		client:        razorpay.NewClient(keyID, keySecret),
		webhookSecret: webhookSecret,
		timeout:       timeout,
	}
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

func (g *RazorpayGateway) CreateSession(ctx context.Context, in CreateSessionInput) (*Session, error) {
	data := map[string]interface{}{
		"amount":   in.AmountTotal,
		"currency": strings.ToUpper(in.Currency),
		"receipt":  in.OrderID,
		"notes": map[string]interface{}{
			"orderId": in.OrderID,
		},
	}

	body, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.client.Order.Create(data, nil)
	})
	if err != nil {
		return nil, &ProviderError{Provider: g.Name(), Message: err.Error(), Err: err}
	}

	id, _ := body["id"].(string)
	return &Session{ID: id}, nil
}

func (g *RazorpayGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	body, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.client.Order.Fetch(sessionID, nil, nil)
	})
	if err != nil {
		return nil, &ProviderError{Provider: g.Name(), Message: err.Error(), Err: err}
	}

	status := &SessionStatus{Currency: "inr"}
	if currency, ok := body["currency"].(string); ok {
		status.Currency = currency
	}
	if amountPaid, ok := body["amount_paid"].(float64); ok {
		status.AmountTotal = int64(amountPaid)
	}

	switch body["status"] {
	case "paid":
		status.PaymentStatus = StatusPaid
	default:
		status.PaymentStatus = StatusPending
	}
	return status, nil
}

// razorpayWebhook is the subset of the webhook envelope the workflow needs.
type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Notes   struct {
					OrderID string `json:"orderId"`
				} `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (g *RazorpayGateway) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	if !utils.VerifyWebhookSignature(string(payload), signature, g.webhookSecret) {
		return nil, ErrInvalidSignature
	}

	var hook razorpayWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, &ProviderError{Provider: g.Name(), Message: "malformed event payload", Err: err}
	}

	out := &Event{
		SessionID: hook.Payload.Payment.Entity.OrderID,
		OrderID:   hook.Payload.Payment.Entity.Notes.OrderID,
		PaymentID: hook.Payload.Payment.Entity.ID,
	}

	switch hook.Event {
	case "payment.captured", "order.paid":
		out.Type = EventSessionCompleted
	case "payment.failed":
		out.Type = EventPaymentFailed
	default:
		out.Type = hook.Event
	}
	return out, nil
}

// call runs a blocking SDK call under the gateway timeout; the SDK itself
// does not take a context.
func (g *RazorpayGateway) call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		body map[string]interface{}
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		body, err := fn()
		ch <- result{body, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.body, r.err
	}
}
