package orders

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"backend/internal/events"
	"backend/internal/metrics"
	"backend/internal/models"
	"backend/internal/store"
)

// Cancel is the customer-driven cancellation: allowed while the order is
// pending or confirmed, idempotent when already cancelled.
func (s *Service) Cancel(ctx context.Context, customerID, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.store.Orders().Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundError{Resource: "order", ID: orderID.Hex()}
	}
	if err != nil {
		return nil, err
	}

	if order.CustomerID != customerID {
		return nil, AuthorizationError{Message: "not your order"}
	}

	switch order.Status {
	case models.OrderStatusCancelled:
		return order, nil
	case models.OrderStatusPending, models.OrderStatusConfirmed:
	default:
		return nil, validationErrorf("order cannot be cancelled once %s", order.Status)
	}

	return s.cancel(ctx, orderID, false)
}

// HandlePaymentCancel is the provider cancel-redirect callback. It
// carries no caller identity, so it may only cancel orders whose payment
// is still pending; a paid order cannot be cancelled this way.
func (s *Service) HandlePaymentCancel(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.cancel(ctx, orderID, true)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return nil, ValidationError{Message: "payment already resolved for this order"}
	}
	return order, err
}

func (s *Service) cancel(ctx context.Context, orderID primitive.ObjectID, requirePaymentPending bool) (*models.Order, error) {
	order, changed, err := s.store.Orders().Cancel(ctx, orderID, models.PaymentStatusCancelled, requirePaymentPending)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundError{Resource: "order", ID: orderID.Hex()}
	}
	if err != nil {
		return order, err
	}

	if changed {
		metrics.OrdersCancelledTotal.Inc()
		s.logger.Info("order cancelled", zap.String("order_id", orderID.Hex()))
		s.publishOrderEvent(events.TypeOrderCancelled, order)
	}
	return order, nil
}
