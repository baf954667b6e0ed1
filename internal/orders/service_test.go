package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/notify"
	"backend/internal/payment"
	"backend/internal/store"
)

// smsRecorder captures confirmation SMS sends instead of hitting Twilio.
type smsRecorder struct {
	mu   sync.Mutex
	sent []notify.OrderConfirmation
}

func (r *smsRecorder) SendOrderConfirmation(_ context.Context, _ string, msg notify.OrderConfirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *smsRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// stubGateway lets individual tests script provider outcomes.
type stubGateway struct {
	createErr   error
	retrieveErr error
	status      payment.SessionStatus
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) CreateSession(_ context.Context, in payment.CreateSessionInput) (*payment.Session, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &payment.Session{ID: "stub_sess_" + in.OrderID, URL: "https://pay.example/" + in.OrderID}, nil
}

func (g *stubGateway) RetrieveSession(_ context.Context, _ string) (*payment.SessionStatus, error) {
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	status := g.status
	return &status, nil
}

func (g *stubGateway) VerifyWebhook(_ []byte, _ string) (*payment.Event, error) {
	return nil, errors.New("stub gateway has no webhooks")
}

type testEnv struct {
	svc   *Service
	store *store.Memory
	sms   *smsRecorder
}

func newTestEnv(t *testing.T, gateway payment.Gateway) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	sms := &smsRecorder{}
	svc := NewService(mem, gateway, sms, nil, Config{
		Currency:   "usd",
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cancel",
	})
	return &testEnv{svc: svc, store: mem, sms: sms}
}

func seedProduct(t *testing.T, mem *store.Memory, farmerID primitive.ObjectID, price float64, discount string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		FarmerID:   farmerID,
		Name:       "Heirloom Tomatoes",
		Price:      price,
		Discount:   discount,
		Stock:      stock,
		Status:     models.ProductStatusAvailable,
		Visibility: models.ProductVisible,
	}
	require.NoError(t, mem.Products().Create(context.Background(), p))
	return p
}

func shipping() models.ShippingAddress {
	return models.ShippingAddress{
		Name:    "Dana Weaver",
		Phone:   "+15550100",
		Address: "14 Orchard Lane",
		City:    "Springfield",
	}
}

func TestCheckoutComputesServerSideTotal(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	farmerID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()
	product := seedProduct(t, env.store, farmerID, 100, "10", 5)

	result, err := env.svc.Checkout(context.Background(), customerID, CheckoutRequest{
		Items:      []CartItem{{ProductID: product.ID.Hex(), Quantity: 2}},
		Shipping:   shipping(),
		TotalPrice: 1, // client totals are never trusted
	})
	require.NoError(t, err)

	assert.Equal(t, 180.0, result.Order.TotalPrice)
	assert.Equal(t, models.OrderStatusPending, result.Order.Status)
	assert.Equal(t, models.PaymentStatusPending, result.Order.Payment.Status)
	assert.Equal(t, farmerID, result.Order.FarmerID)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, result.SessionID, result.Order.Payment.SessionID)

	// Stock is only consumed at payment confirmation, never at checkout.
	stored, err := env.store.Products().Get(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Stock)
}

func TestCheckoutCapturesDiscountedUnitPrice(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	product := seedProduct(t, env.store, primitive.NewObjectID(), 40, "15%", 10)

	result, err := env.svc.Checkout(context.Background(), primitive.NewObjectID(), CheckoutRequest{
		Items:    []CartItem{{ProductID: product.ID.Hex(), Quantity: 3}},
		Shipping: shipping(),
	})
	require.NoError(t, err)

	require.Len(t, result.Order.Items, 1)
	assert.Equal(t, 34.0, result.Order.Items[0].Price)
	assert.Equal(t, 102.0, result.Order.TotalPrice)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	customerID := primitive.NewObjectID()
	product := seedProduct(t, env.store, primitive.NewObjectID(), 20, "", 1)

	_, err := env.svc.Checkout(context.Background(), customerID, CheckoutRequest{
		Items:    []CartItem{{ProductID: product.ID.Hex(), Quantity: 3}},
		Shipping: shipping(),
	})

	var stockErr InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, product.ID, stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)

	orders, err := env.store.Orders().ListByCustomer(context.Background(), customerID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, orders, "a rejected cart must not leave an order behind")
}

func TestCheckoutRejectsIncompleteAddress(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	product := seedProduct(t, env.store, primitive.NewObjectID(), 20, "", 5)

	_, err := env.svc.Checkout(context.Background(), primitive.NewObjectID(), CheckoutRequest{
		Items:    []CartItem{{ProductID: product.ID.Hex(), Quantity: 1}},
		Shipping: models.ShippingAddress{Name: "Dana Weaver"},
	})

	var vErr ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestCheckoutRejectsNonPositiveQuantity(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	product := seedProduct(t, env.store, primitive.NewObjectID(), 20, "", 5)

	for _, qty := range []int{0, -2} {
		_, err := env.svc.Checkout(context.Background(), primitive.NewObjectID(), CheckoutRequest{
			Items:    []CartItem{{ProductID: product.ID.Hex(), Quantity: qty}},
			Shipping: shipping(),
		})
		var vErr ValidationError
		require.ErrorAs(t, err, &vErr, "quantity %d must be rejected", qty)
	}
}

func TestCheckoutUnknownProduct(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))

	_, err := env.svc.Checkout(context.Background(), primitive.NewObjectID(), CheckoutRequest{
		Items:    []CartItem{{ProductID: primitive.NewObjectID().Hex(), Quantity: 1}},
		Shipping: shipping(),
	})

	var nfErr NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestCheckoutHiddenProductUnavailable(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	product := seedProduct(t, env.store, primitive.NewObjectID(), 20, "", 5)
	product.Visibility = models.ProductHidden
	require.NoError(t, env.store.Products().Update(context.Background(), product))

	_, err := env.svc.Checkout(context.Background(), primitive.NewObjectID(), CheckoutRequest{
		Items:    []CartItem{{ProductID: product.ID.Hex(), Quantity: 1}},
		Shipping: shipping(),
	})

	var uErr UnavailableError
	require.ErrorAs(t, err, &uErr)
}

func TestCheckoutProviderFailureKeepsPendingOrder(t *testing.T) {
	gateway := &stubGateway{createErr: &payment.ProviderError{Provider: "stub", Message: "session refused"}}
	env := newTestEnv(t, gateway)
	customerID := primitive.NewObjectID()
	product := seedProduct(t, env.store, primitive.NewObjectID(), 40, "", 5)

	_, err := env.svc.Checkout(context.Background(), customerID, CheckoutRequest{
		Items:    []CartItem{{ProductID: product.ID.Hex(), Quantity: 1}},
		Shipping: shipping(),
	})

	var provErr *payment.ProviderError
	require.ErrorAs(t, err, &provErr)

	// The pending order survives, without a session, for the cancel flows.
	orders, lerr := env.store.Orders().ListByCustomer(context.Background(), customerID, 1, 10)
	require.NoError(t, lerr)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusPending, orders[0].Status)
	assert.Empty(t, orders[0].Payment.SessionID)
}

func TestGetOrderAuthorization(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	customerID := primitive.NewObjectID()
	farmerID := primitive.NewObjectID()
	product := seedProduct(t, env.store, farmerID, 20, "", 5)

	result, err := env.svc.Checkout(context.Background(), customerID, CheckoutRequest{
		Items:    []CartItem{{ProductID: product.ID.Hex(), Quantity: 1}},
		Shipping: shipping(),
	})
	require.NoError(t, err)
	orderID := result.Order.ID

	_, err = env.svc.GetOrder(context.Background(), customerID, "customer", orderID)
	assert.NoError(t, err)

	_, err = env.svc.GetOrder(context.Background(), farmerID, "farmer", orderID)
	assert.NoError(t, err)

	_, err = env.svc.GetOrder(context.Background(), primitive.NewObjectID(), "admin", orderID)
	assert.NoError(t, err)

	var authErr AuthorizationError
	_, err = env.svc.GetOrder(context.Background(), primitive.NewObjectID(), "customer", orderID)
	require.ErrorAs(t, err, &authErr)
}
