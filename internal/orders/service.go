package orders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"backend/internal/events"
	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/models"
	"backend/internal/notify"
	"backend/internal/payment"
	"backend/internal/store"
)

// Config carries the checkout parameters the workflow hands to the
// payment provider.
type Config struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

// Service orchestrates the order/payment workflow.
type Service struct {
	store     store.Store
	gateway   payment.Gateway
	sms       notify.Sender
	publisher *events.Publisher
	cfg       Config
	logger    *zap.Logger

	sideEffects sync.WaitGroup
}

// WaitSideEffects blocks until in-flight confirmation side effects
// (notification, SMS, stream event) have finished. Called on shutdown.
func (s *Service) WaitSideEffects() {
	s.sideEffects.Wait()
}

func NewService(st store.Store, gateway payment.Gateway, sms notify.Sender, publisher *events.Publisher, cfg Config) *Service {
	return &Service{
		store:     st,
		gateway:   gateway,
		sms:       sms,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.L(),
	}
}

// CartItem is one requested cart line.
type CartItem struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// CheckoutRequest is the cart plus shipping address submitted by the
// client. TotalPrice is accepted for shape compatibility and ignored:
// the total is always computed server-side.
type CheckoutRequest struct {
	Items         []CartItem             `json:"items" binding:"required,min=1"`
	Shipping      models.ShippingAddress `json:"shipping" binding:"required"`
	TotalPrice    float64                `json:"totalPrice"`
	CustomerEmail string                 `json:"email"`
}

// CheckoutResult is returned to the client to continue with the provider.
type CheckoutResult struct {
	Order       *models.Order `json:"order"`
	SessionID   string        `json:"sessionId"`
	CheckoutURL string        `json:"checkoutUrl,omitempty"`
}

// validatedCart is the outcome of the read-only validation pass.
type validatedCart struct {
	items    []models.OrderItem
	total    float64
	farmerID primitive.ObjectID
}

// validateCart resolves every cart line against the catalog and computes
// the server-side total. It has no side effects.
func (s *Service) validateCart(ctx context.Context, items []CartItem, shipping models.ShippingAddress) (*validatedCart, error) {
	if len(items) == 0 {
		return nil, ValidationError{Message: "at least one item is required"}
	}
	if strings.TrimSpace(shipping.Name) == "" ||
		strings.TrimSpace(shipping.Phone) == "" ||
		strings.TrimSpace(shipping.Address) == "" {
		return nil, ValidationError{Message: "shipping name, phone and address are required"}
	}

	cart := &validatedCart{items: make([]models.OrderItem, 0, len(items))}

	for _, item := range items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return nil, validationErrorf("invalid productId %q", item.ProductID)
		}
		if item.Quantity <= 0 {
			return nil, ValidationError{Message: "quantity must be greater than zero"}
		}

		product, err := s.store.Products().Get(ctx, productID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundError{Resource: "product", ID: productID.Hex()}
		}
		if err != nil {
			return nil, err
		}

		if !product.Orderable() {
			return nil, UnavailableError{ProductID: productID}
		}
		if product.Stock < item.Quantity {
			return nil, InsufficientStockError{
				ProductID: productID,
				Available: product.Stock,
				Requested: item.Quantity,
			}
		}

		unitPrice := effectiveUnitPrice(product.Price, product.Discount)
		cart.items = append(cart.items, models.OrderItem{
			ProductID: productID,
			Name:      product.Name,
			Price:     unitPrice,
			Quantity:  item.Quantity,
		})
		cart.total = roundMoney(cart.total + unitPrice*float64(item.Quantity))

		if cart.farmerID.IsZero() {
			cart.farmerID = product.FarmerID
		}
	}

	return cart, nil
}

// Checkout validates the cart, creates the pending order and opens a
// provider session. A provider failure leaves the pending order behind
// without a session id; the cancellation flows clean those up.
func (s *Service) Checkout(ctx context.Context, customerID primitive.ObjectID, req CheckoutRequest) (*CheckoutResult, error) {
	cart, err := s.validateCart(ctx, req.Items, req.Shipping)
	if err != nil {
		metrics.CheckoutFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	order := &models.Order{
		CustomerID: customerID,
		FarmerID:   cart.farmerID,
		Items:      cart.items,
		TotalPrice: cart.total,
		Payment: models.Payment{
			Method: s.gateway.Name(),
			Status: models.PaymentStatusPending,
		},
		Shipping:  req.Shipping,
		Status:    models.OrderStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.store.Orders().Create(ctx, order); err != nil {
		metrics.CheckoutFailedTotal.WithLabelValues("db_error").Inc()
		return nil, err
	}
	metrics.OrdersCreatedTotal.Inc()

	lineItems := make([]payment.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, payment.LineItem{
			Name:       item.Name,
			UnitAmount: minorUnits(item.Price),
			Quantity:   int64(item.Quantity),
		})
	}

	session, err := s.gateway.CreateSession(ctx, payment.CreateSessionInput{
		OrderID:       order.ID.Hex(),
		Items:         lineItems,
		AmountTotal:   minorUnits(order.TotalPrice),
		Currency:      s.cfg.Currency,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		metrics.PaymentSessionFailures.WithLabelValues(s.gateway.Name()).Inc()
		s.logger.Error("payment session creation failed",
			zap.String("order_id", order.ID.Hex()),
			zap.String("provider", s.gateway.Name()),
			zap.Error(err))
		return nil, err
	}
	metrics.PaymentSessionsTotal.WithLabelValues(s.gateway.Name()).Inc()

	if err := s.store.Orders().AttachSession(ctx, order.ID, session.ID); err != nil {
		return nil, err
	}
	order.Payment.SessionID = session.ID

	s.logger.Info("checkout session created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("session_id", session.ID),
		zap.Float64("total", order.TotalPrice))

	return &CheckoutResult{
		Order:       order,
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

// GetOrder returns an order to its customer, its farmer, or an admin.
func (s *Service) GetOrder(ctx context.Context, requesterID primitive.ObjectID, role string, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.store.Orders().Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundError{Resource: "order", ID: orderID.Hex()}
	}
	if err != nil {
		return nil, err
	}
	if role != "admin" && order.CustomerID != requesterID && order.FarmerID != requesterID {
		return nil, AuthorizationError{Message: "not your order"}
	}
	return order, nil
}

// OrdersForCustomer lists a customer's own orders, newest first.
func (s *Service) OrdersForCustomer(ctx context.Context, customerID primitive.ObjectID, page, limit int64) ([]models.Order, error) {
	return s.store.Orders().ListByCustomer(ctx, customerID, page, limit)
}

// OrdersForFarmer lists the orders placed against a farmer's products.
func (s *Service) OrdersForFarmer(ctx context.Context, farmerID primitive.ObjectID, page, limit int64) ([]models.Order, error) {
	return s.store.Orders().ListByFarmer(ctx, farmerID, page, limit)
}

// DeleteOrder hard-deletes an order; admin tooling only.
func (s *Service) DeleteOrder(ctx context.Context, orderID primitive.ObjectID) error {
	err := s.store.Orders().Delete(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return NotFoundError{Resource: "order", ID: orderID.Hex()}
	}
	return err
}
