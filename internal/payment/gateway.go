package payment

import (
	"context"
	"errors"
	"fmt"
)

// Normalized payment states reported by providers.
const (
	StatusPaid    = "paid"
	StatusPending = "pending"
	StatusFailed  = "failed"
	StatusExpired = "expired"
)

// Normalized webhook event types.
const (
	EventSessionCompleted = "session.completed"
	EventSessionExpired   = "session.expired"
	EventPaymentFailed    = "payment.failed"
)

// ErrInvalidSignature is returned when a webhook signature does not match.
// No caller may apply side effects after seeing it.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ProviderError wraps an upstream payment API failure. The provider's
// message is kept for the server log; handlers surface a sanitized one.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// LineItem is a checkout line as shown by the provider. UnitAmount is in
// currency minor units with the discount already applied, so the
// provider's display total matches the server-computed one.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CreateSessionInput describes the checkout to open with the provider.
type CreateSessionInput struct {
	OrderID       string
	Items         []LineItem
	AmountTotal   int64
	Currency      string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
}

// Session is a provider checkout session. URL may be empty for providers
// whose checkout runs client-side.
type Session struct {
	ID  string
	URL string
}

// SessionStatus is the provider's view of a session at retrieval time.
type SessionStatus struct {
	PaymentStatus string
	PaymentID     string
	AmountTotal   int64
	Currency      string
}

// Event is a normalized provider webhook event.
type Event struct {
	Type      string
	SessionID string
	OrderID   string
	PaymentID string
}

// Gateway is the thin wrapper over an external payment provider.
type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, in CreateSessionInput) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error)
	// VerifyWebhook authenticates and decodes a raw webhook delivery.
	// A signature mismatch returns ErrInvalidSignature.
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}
