package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// TestGateway is the deliberate fallback for deployments without payment
// credentials: it hands out synthetic sessions that always verify as paid,
// so the rest of the order pipeline stays exercisable.
type TestGateway struct {
	secret string
}

func NewTest(secret string) *TestGateway {
	if secret == "" {
		secret = "test-mode-secret"
	}
	return &TestGateway{secret: secret}
}

func (g *TestGateway) Name() string { return "test" }

func (g *TestGateway) CreateSession(_ context.Context, in CreateSessionInput) (*Session, error) {
	return &Session{
		ID:  "test_sess_" + uuid.NewString(),
		URL: in.SuccessURL,
	}, nil
}

func (g *TestGateway) RetrieveSession(_ context.Context, sessionID string) (*SessionStatus, error) {
	if !strings.HasPrefix(sessionID, "test_sess_") {
		return nil, &ProviderError{Provider: g.Name(), Message: "unknown session " + sessionID}
	}
	return &SessionStatus{
		PaymentStatus: StatusPaid,
		PaymentID:     "test_pay_" + strings.TrimPrefix(sessionID, "test_sess_"),
	}, nil
}

// testWebhookEvent is the synthetic webhook body, signed with a plain
// hex HMAC-SHA256 over the payload.
type testWebhookEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId,omitempty"`
}

func (g *TestGateway) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	expected := g.Sign(payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	var hook testWebhookEvent
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, &ProviderError{Provider: g.Name(), Message: "malformed event payload", Err: err}
	}

	return &Event{
		Type:      hook.Type,
		SessionID: hook.SessionID,
		OrderID:   hook.OrderID,
		PaymentID: hook.PaymentID,
	}, nil
}

// Sign produces the signature header value for a payload. Exposed so the
// webhook path can be driven end to end without a real provider.
func (g *TestGateway) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
