package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTestGatewaySessionRoundTrip(t *testing.T) {
	g := NewTest("")

	session, err := g.CreateSession(context.Background(), CreateSessionInput{
		OrderID:    "abc",
		SuccessURL: "https://shop.example/success",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if !strings.HasPrefix(session.ID, "test_sess_") {
		t.Fatalf("unexpected session id %q", session.ID)
	}

	status, err := g.RetrieveSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("retrieve session: %v", err)
	}
	if status.PaymentStatus != StatusPaid {
		t.Fatalf("synthetic sessions always verify as paid, got %q", status.PaymentStatus)
	}
	if !strings.HasPrefix(status.PaymentID, "test_pay_") {
		t.Fatalf("unexpected payment id %q", status.PaymentID)
	}
}

func TestTestGatewayRejectsUnknownSession(t *testing.T) {
	g := NewTest("")
	var provErr *ProviderError
	if _, err := g.RetrieveSession(context.Background(), "cs_live_123"); !errors.As(err, &provErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestTestGatewayWebhookSignature(t *testing.T) {
	g := NewTest("shared-secret")
	payload := []byte(`{"type":"session.completed","sessionId":"test_sess_1","orderId":"65f000000000000000000001"}`)

	event, err := g.VerifyWebhook(payload, g.Sign(payload))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if event.Type != EventSessionCompleted || event.OrderID != "65f000000000000000000001" {
		t.Fatalf("unexpected event: %+v", event)
	}

	if _, err := g.VerifyWebhook(payload, "not-a-signature"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	other := NewTest("different-secret")
	if _, err := g.VerifyWebhook(payload, other.Sign(payload)); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("a signature under another secret must be rejected, got %v", err)
	}
}

func TestTestGatewayWebhookMalformedPayload(t *testing.T) {
	g := NewTest("")
	payload := []byte("not json")
	var provErr *ProviderError
	if _, err := g.VerifyWebhook(payload, g.Sign(payload)); !errors.As(err, &provErr) {
		t.Fatalf("expected provider error for malformed payload, got %v", err)
	}
}
