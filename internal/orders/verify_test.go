package orders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/payment"
)

// checkoutOrder seeds one product and runs a checkout against it,
// returning both so verification tests can drive the rest of the flow.
func checkoutOrder(t *testing.T, env *testEnv, stock, qty int) (*models.Product, *models.Order) {
	t.Helper()
	product := seedProduct(t, env.store, primitive.NewObjectID(), 25, "", stock)
	result, err := env.svc.Checkout(context.Background(), primitive.NewObjectID(), CheckoutRequest{
		Items:    []CartItem{{ProductID: product.ID.Hex(), Quantity: qty}},
		Shipping: shipping(),
	})
	require.NoError(t, err)
	return product, result.Order
}

func productStock(t *testing.T, env *testEnv, id primitive.ObjectID) int {
	t.Helper()
	p, err := env.store.Products().Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestVerifyPaymentConfirmsAndDecrementsStock(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	product, order := checkoutOrder(t, env, 5, 2)

	confirmed, err := env.svc.VerifyPayment(context.Background(), order.ID, order.Payment.SessionID)
	require.NoError(t, err)
	env.svc.WaitSideEffects()

	assert.Equal(t, models.OrderStatusConfirmed, confirmed.Status)
	assert.Equal(t, models.PaymentStatusCompleted, confirmed.Payment.Status)
	assert.NotEmpty(t, confirmed.Payment.PaymentID)
	assert.Equal(t, 3, productStock(t, env, product.ID))

	notifications := env.store.AllNotifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, order.FarmerID, notifications[0].FarmerID)
	assert.Equal(t, 1, env.sms.count())
}

func TestVerifyPaymentIsIdempotent(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	product, order := checkoutOrder(t, env, 5, 2)

	_, err := env.svc.VerifyPayment(context.Background(), order.ID, order.Payment.SessionID)
	require.NoError(t, err)
	again, err := env.svc.VerifyPayment(context.Background(), order.ID, order.Payment.SessionID)
	require.NoError(t, err)
	env.svc.WaitSideEffects()

	assert.Equal(t, models.OrderStatusConfirmed, again.Status)
	assert.Equal(t, 3, productStock(t, env, product.ID), "stock must be decremented exactly once")
	assert.Len(t, env.store.AllNotifications(), 1)
	assert.Equal(t, 1, env.sms.count())
}

func TestVerifyPaymentDefaultsToStoredSession(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	_, order := checkoutOrder(t, env, 5, 1)

	confirmed, err := env.svc.VerifyPayment(context.Background(), order.ID, "")
	require.NoError(t, err)
	env.svc.WaitSideEffects()
	assert.Equal(t, models.OrderStatusConfirmed, confirmed.Status)
}

func TestVerifyPaymentRejectsForeignSession(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	product, order := checkoutOrder(t, env, 5, 1)

	_, err := env.svc.VerifyPayment(context.Background(), order.ID, "test_sess_somebody-else")
	var vErr ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 5, productStock(t, env, product.ID))
}

func TestVerifyPaymentIncompleteLeavesOrderPending(t *testing.T) {
	gateway := &stubGateway{status: payment.SessionStatus{PaymentStatus: payment.StatusPending}}
	env := newTestEnv(t, gateway)
	product, order := checkoutOrder(t, env, 5, 2)

	_, err := env.svc.VerifyPayment(context.Background(), order.ID, order.Payment.SessionID)
	var incErr PaymentIncompleteError
	require.ErrorAs(t, err, &incErr)

	stored, gerr := env.store.Orders().Get(context.Background(), order.ID)
	require.NoError(t, gerr)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, 5, productStock(t, env, product.ID))
}

func TestVerifyPaymentExpiredSessionCancelsOrder(t *testing.T) {
	gateway := &stubGateway{status: payment.SessionStatus{PaymentStatus: payment.StatusExpired}}
	env := newTestEnv(t, gateway)
	product, order := checkoutOrder(t, env, 5, 2)

	cancelled, err := env.svc.VerifyPayment(context.Background(), order.ID, order.Payment.SessionID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentStatusExpired, cancelled.Payment.Status)
	assert.Equal(t, 5, productStock(t, env, product.ID))
}

func signedWebhook(t *testing.T, gateway *payment.TestGateway, eventType string, order *models.Order) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"type":      eventType,
		"sessionId": order.Payment.SessionID,
		"orderId":   order.ID.Hex(),
		"paymentId": "test_pay_webhook",
	})
	require.NoError(t, err)
	return payload, gateway.Sign(payload)
}

func TestWebhookRejectsBadSignatureBeforeAnySideEffect(t *testing.T) {
	gateway := payment.NewTest("")
	env := newTestEnv(t, gateway)
	product, order := checkoutOrder(t, env, 5, 2)

	payload, _ := signedWebhook(t, gateway, payment.EventSessionCompleted, order)
	err := env.svc.HandleWebhook(context.Background(), payload, "deadbeef")
	require.ErrorIs(t, err, payment.ErrInvalidSignature)
	env.svc.WaitSideEffects()

	stored, gerr := env.store.Orders().Get(context.Background(), order.ID)
	require.NoError(t, gerr)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, 5, productStock(t, env, product.ID))
	assert.Empty(t, env.store.AllNotifications())
	assert.Zero(t, env.sms.count())
}

func TestWebhookSessionCompletedConfirms(t *testing.T) {
	gateway := payment.NewTest("")
	env := newTestEnv(t, gateway)
	product, order := checkoutOrder(t, env, 5, 2)

	payload, sig := signedWebhook(t, gateway, payment.EventSessionCompleted, order)
	require.NoError(t, env.svc.HandleWebhook(context.Background(), payload, sig))
	env.svc.WaitSideEffects()

	stored, err := env.store.Orders().Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Payment.Status)
	assert.Equal(t, "test_pay_webhook", stored.Payment.PaymentID)
	assert.Equal(t, 3, productStock(t, env, product.ID))
}

func TestWebhookDuplicateDeliveryIsAcknowledgedOnce(t *testing.T) {
	gateway := payment.NewTest("")
	env := newTestEnv(t, gateway)
	product, order := checkoutOrder(t, env, 5, 2)

	payload, sig := signedWebhook(t, gateway, payment.EventSessionCompleted, order)
	require.NoError(t, env.svc.HandleWebhook(context.Background(), payload, sig))
	require.NoError(t, env.svc.HandleWebhook(context.Background(), payload, sig))
	env.svc.WaitSideEffects()

	assert.Equal(t, 3, productStock(t, env, product.ID))
	assert.Len(t, env.store.AllNotifications(), 1)
	assert.Equal(t, 1, env.sms.count())
}

func TestWebhookAndClientVerifyRaceConfirmsOnce(t *testing.T) {
	gateway := payment.NewTest("")
	env := newTestEnv(t, gateway)
	product, order := checkoutOrder(t, env, 5, 2)

	payload, sig := signedWebhook(t, gateway, payment.EventSessionCompleted, order)
	require.NoError(t, env.svc.HandleWebhook(context.Background(), payload, sig))
	_, err := env.svc.VerifyPayment(context.Background(), order.ID, order.Payment.SessionID)
	require.NoError(t, err)
	env.svc.WaitSideEffects()

	assert.Equal(t, 3, productStock(t, env, product.ID))
	assert.Len(t, env.store.AllNotifications(), 1)
}

func TestWebhookSessionExpiredCancelsPendingOrder(t *testing.T) {
	gateway := payment.NewTest("")
	env := newTestEnv(t, gateway)
	product, order := checkoutOrder(t, env, 5, 2)

	payload, sig := signedWebhook(t, gateway, payment.EventSessionExpired, order)
	require.NoError(t, env.svc.HandleWebhook(context.Background(), payload, sig))

	stored, err := env.store.Orders().Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentStatusExpired, stored.Payment.Status)
	assert.Equal(t, 5, productStock(t, env, product.ID))
}

func TestWebhookExpiryAfterCompletionIsIgnored(t *testing.T) {
	gateway := payment.NewTest("")
	env := newTestEnv(t, gateway)
	product, order := checkoutOrder(t, env, 5, 2)

	completed, sig := signedWebhook(t, gateway, payment.EventSessionCompleted, order)
	require.NoError(t, env.svc.HandleWebhook(context.Background(), completed, sig))
	env.svc.WaitSideEffects()

	expired, sig := signedWebhook(t, gateway, payment.EventSessionExpired, order)
	require.NoError(t, env.svc.HandleWebhook(context.Background(), expired, sig))

	stored, err := env.store.Orders().Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Payment.Status)
	assert.Equal(t, 3, productStock(t, env, product.ID))
}

func TestWebhookPaymentFailedLeavesOrderRetryable(t *testing.T) {
	gateway := payment.NewTest("")
	env := newTestEnv(t, gateway)
	_, order := checkoutOrder(t, env, 5, 1)

	payload, sig := signedWebhook(t, gateway, payment.EventPaymentFailed, order)
	require.NoError(t, env.svc.HandleWebhook(context.Background(), payload, sig))

	stored, err := env.store.Orders().Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, models.PaymentStatusPending, stored.Payment.Status)
}

func TestWebhookUnknownEventTypeIsIgnored(t *testing.T) {
	gateway := payment.NewTest("")
	env := newTestEnv(t, gateway)
	_, order := checkoutOrder(t, env, 5, 1)

	payload, sig := signedWebhook(t, gateway, "charge.refunded", order)
	require.NoError(t, env.svc.HandleWebhook(context.Background(), payload, sig))

	stored, err := env.store.Orders().Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}
