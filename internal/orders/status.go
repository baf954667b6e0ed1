package orders

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"backend/internal/models"
	"backend/internal/store"
)

// statusTransitions is the explicit transition table. The production
// system allowed any status to overwrite any other; keeping that would
// let delivered orders silently return to pending, so illegal moves are
// rejected instead.
var statusTransitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:   {models.OrderStatusDelivered},
	models.OrderStatusDelivered: {},
	models.OrderStatusCancelled: {},
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// UpdateStatus is the farmer-driven transition (confirmed → shipped →
// delivered, plus cancellation). Setting the current status again is a
// no-op success.
func (s *Service) UpdateStatus(ctx context.Context, farmerID, orderID primitive.ObjectID, target string) (*models.Order, error) {
	if _, known := statusTransitions[target]; !known {
		return nil, validationErrorf("unknown status %q", target)
	}

	order, err := s.store.Orders().Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundError{Resource: "order", ID: orderID.Hex()}
	}
	if err != nil {
		return nil, err
	}

	if order.FarmerID != farmerID {
		return nil, AuthorizationError{Message: "order belongs to another farmer"}
	}

	if order.Status == target {
		return order, nil
	}
	if !transitionAllowed(order.Status, target) {
		return nil, validationErrorf("cannot move order from %s to %s", order.Status, target)
	}

	if target == models.OrderStatusCancelled {
		return s.cancel(ctx, orderID, false)
	}

	if err := s.store.Orders().UpdateStatus(ctx, orderID, target); err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		zap.String("order_id", orderID.Hex()),
		zap.String("from", order.Status),
		zap.String("to", target))

	order.Status = target
	return order, nil
}
