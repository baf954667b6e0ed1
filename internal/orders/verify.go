package orders

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"backend/internal/events"
	"backend/internal/metrics"
	"backend/internal/models"
	"backend/internal/notify"
	"backend/internal/payment"
	"backend/internal/store"
)

// VerifyPayment is the client-confirm path: after the redirect back from
// the provider, the client polls with the session id. Safe to call any
// number of times; a completed order is returned as-is.
func (s *Service) VerifyPayment(ctx context.Context, orderID primitive.ObjectID, sessionID string) (*models.Order, error) {
	order, err := s.store.Orders().Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundError{Resource: "order", ID: orderID.Hex()}
	}
	if err != nil {
		return nil, err
	}

	if order.Payment.Status == models.PaymentStatusCompleted {
		return order, nil
	}

	if sessionID == "" {
		sessionID = order.Payment.SessionID
	}
	if sessionID == "" || sessionID != order.Payment.SessionID {
		return nil, ValidationError{Message: "session does not belong to this order"}
	}

	status, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch status.PaymentStatus {
	case payment.StatusPaid:
		return s.confirm(ctx, orderID, status.PaymentID)
	case payment.StatusExpired:
		return s.expire(ctx, orderID)
	default:
		return nil, PaymentIncompleteError{Status: status.PaymentStatus}
	}
}

// HandleWebhook is the asynchronous provider path. Signature mismatches
// are rejected before anything else; duplicate deliveries are safe.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.VerifyWebhook(payload, signature)
	if errors.Is(err, payment.ErrInvalidSignature) {
		metrics.WebhooksRejectedTotal.Inc()
		s.logger.Warn("webhook rejected: signature mismatch",
			zap.String("provider", s.gateway.Name()))
		return err
	}
	if err != nil {
		return err
	}

	orderID, err := primitive.ObjectIDFromHex(event.OrderID)
	if err != nil {
		return validationErrorf("webhook event carries no usable order id (%q)", event.OrderID)
	}

	switch event.Type {
	case payment.EventSessionCompleted:
		_, err := s.confirm(ctx, orderID, event.PaymentID)
		return err
	case payment.EventSessionExpired:
		_, err := s.expire(ctx, orderID)
		return err
	case payment.EventPaymentFailed:
		// Not a terminal session state: the customer may retry. Recorded,
		// never mutated.
		s.logger.Info("payment attempt failed",
			zap.String("order_id", orderID.Hex()),
			zap.String("payment_id", event.PaymentID))
		return nil
	default:
		s.logger.Debug("ignoring webhook event", zap.String("type", event.Type))
		return nil
	}
}

// confirm applies the paid outcome exactly once. The store performs the
// compare-and-swap on payment status together with every stock decrement
// in one transaction; side effects fire only when this call won the swap.
func (s *Service) confirm(ctx context.Context, orderID primitive.ObjectID, paymentID string) (*models.Order, error) {
	order, applied, err := s.store.ConfirmOrder(ctx, orderID, paymentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundError{Resource: "order", ID: orderID.Hex()}
	}
	if errors.Is(err, store.ErrInsufficientStock) {
		return nil, validationErrorf("stock changed while payment was in flight for order %s", orderID.Hex())
	}
	if err != nil {
		return nil, err
	}

	if !applied {
		s.logger.Info("duplicate payment confirmation skipped",
			zap.String("order_id", orderID.Hex()))
		return order, nil
	}

	metrics.OrdersConfirmedTotal.Inc()
	s.logger.Info("order confirmed",
		zap.String("order_id", order.ID.Hex()),
		zap.String("payment_id", paymentID))

	s.dispatchConfirmationSideEffects(order)

	return order, nil
}

// expire handles an explicit provider expiry: the order moves to
// cancelled with payment status expired, but only while payment was
// still pending. An order that completed in the meantime is untouched.
func (s *Service) expire(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	order, changed, err := s.store.Orders().Cancel(ctx, orderID, models.PaymentStatusExpired, true)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundError{Resource: "order", ID: orderID.Hex()}
	}
	if errors.Is(err, store.ErrPreconditionFailed) {
		// Payment already resolved; nothing to expire.
		return order, nil
	}
	if err != nil {
		return nil, err
	}

	if changed {
		metrics.OrdersCancelledTotal.Inc()
		s.logger.Info("order expired", zap.String("order_id", orderID.Hex()))
		s.publishOrderEvent(events.TypeOrderCancelled, order)
	}
	return order, nil
}

// dispatchConfirmationSideEffects fans out the farmer notification, the
// customer SMS and the stream event after the confirmation committed.
// All of it is best-effort: errors are logged and never propagated.
func (s *Service) dispatchConfirmationSideEffects(order *models.Order) {
	o := *order
	s.sideEffects.Add(1)
	go func() {
		defer s.sideEffects.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("confirmation side effects panicked", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		notification := &models.Notification{
			FarmerID: o.FarmerID,
			Type:     models.NotificationOrderConfirmed,
			Title:    "New order received",
			Message:  "Order " + o.ID.Hex() + " was paid and confirmed.",
			OrderID:  o.ID,
			Metadata: map[string]string{
				"paymentMethod": o.Payment.Method,
			},
		}
		if err := s.store.Notifications().Create(ctx, notification); err != nil {
			s.logger.Error("notification create failed",
				zap.String("order_id", o.ID.Hex()), zap.Error(err))
		}

		if err := s.sms.SendOrderConfirmation(ctx, o.Shipping.Phone, notify.OrderConfirmation{
			CustomerName: o.Shipping.Name,
			OrderID:      o.ID.Hex(),
			TotalAmount:  o.TotalPrice,
			PaymentMode:  o.Payment.Method,
			PlacedAt:     o.CreatedAt,
		}); err != nil {
			s.logger.Warn("confirmation sms failed",
				zap.String("order_id", o.ID.Hex()), zap.Error(err))
		}

		s.publishOrderEventCtx(ctx, events.TypeOrderConfirmed, &o)
	}()
}

func (s *Service) publishOrderEvent(eventType string, order *models.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.publishOrderEventCtx(ctx, eventType, order)
}

func (s *Service) publishOrderEventCtx(ctx context.Context, eventType string, order *models.Order) {
	err := s.publisher.Publish(ctx, eventType, events.OrderEvent{
		OrderID:     order.ID.Hex(),
		FarmerID:    order.FarmerID.Hex(),
		CustomerID:  order.CustomerID.Hex(),
		TotalAmount: order.TotalPrice,
	})
	if err != nil {
		s.logger.Warn("order event publish failed",
			zap.String("order_id", order.ID.Hex()), zap.Error(err))
	}
}
