package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/notify"
	"backend/internal/orders"
	"backend/internal/payment"
	"backend/internal/store"
)

func newWebhookFixture(t *testing.T) (*gin.Engine, *store.Memory, *payment.TestGateway, *orders.CheckoutResult) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	gateway := payment.NewTest("")
	svc := orders.NewService(mem, gateway, notify.LogSender{}, nil, orders.Config{
		Currency:   "usd",
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cancel",
	})

	product := &models.Product{
		FarmerID:   primitive.NewObjectID(),
		Name:       "Fresh Eggs",
		Price:      6,
		Stock:      12,
		Status:     models.ProductStatusAvailable,
		Visibility: models.ProductVisible,
	}
	if err := mem.Products().Create(context.Background(), product); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	result, err := svc.Checkout(context.Background(), primitive.NewObjectID(), orders.CheckoutRequest{
		Items: []orders.CartItem{{ProductID: product.ID.Hex(), Quantity: 2}},
		Shipping: models.ShippingAddress{
			Name:    "Dana Weaver",
			Phone:   "+15550100",
			Address: "14 Orchard Lane",
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	r := gin.New()
	r.POST("/webhooks/payment", PaymentWebhook(svc, gateway.Name()))
	return r, mem, gateway, result
}

func webhookBody(t *testing.T, result *orders.CheckoutResult, eventType string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"type":      eventType,
		"sessionId": result.SessionID,
		"orderId":   result.Order.ID.Hex(),
		"paymentId": "test_pay_1",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func TestPaymentWebhookConfirmsOrder(t *testing.T) {
	r, mem, gateway, result := newWebhookFixture(t)
	payload := webhookBody(t, result, payment.EventSessionCompleted)

	req := httptest.NewRequest("POST", "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("X-Webhook-Signature", gateway.Sign(payload))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	order, err := mem.Orders().Get(context.Background(), result.Order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != models.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order, got %s", order.Status)
	}
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	r, mem, _, result := newWebhookFixture(t)
	payload := webhookBody(t, result, payment.EventSessionCompleted)

	req := httptest.NewRequest("POST", "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("X-Webhook-Signature", "forged")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	order, err := mem.Orders().Get(context.Background(), result.Order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != models.OrderStatusPending {
		t.Fatalf("a rejected webhook must not touch the order, got %s", order.Status)
	}
}

func TestSignatureHeaderPerProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)

	req := httptest.NewRequest("POST", "/webhooks/payment", nil)
	req.Header.Set("Stripe-Signature", "s1")
	req.Header.Set("X-Razorpay-Signature", "r1")
	req.Header.Set("X-Webhook-Signature", "t1")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	if got := signatureHeader(c, "stripe"); got != "s1" {
		t.Fatalf("stripe header: %q", got)
	}
	if got := signatureHeader(c, "razorpay"); got != "r1" {
		t.Fatalf("razorpay header: %q", got)
	}
	if got := signatureHeader(c, "test"); got != "t1" {
		t.Fatalf("fallback header: %q", got)
	}
}
