package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/store"
)

// SubmitFeedback records post-delivery feedback: once per order, only by
// the owning customer, only while the order is delivered. The once-only
// rule is enforced by a conditional update, not read-then-write.
func (s *Service) SubmitFeedback(ctx context.Context, customerID, orderID primitive.ObjectID, rating int, comment string) (*models.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, ValidationError{Message: "rating must be between 1 and 5"}
	}

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
	if order.Feedback != nil {
		return nil, FeedbackExistsError{OrderID: orderID}
	}
	if order.Status != models.OrderStatusDelivered {
		return nil, validationErrorf("feedback requires a delivered order, not %s", order.Status)
	}

	fb := models.Feedback{
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: time.Now(),
	}

	err = s.store.Orders().SetFeedback(ctx, orderID, fb)
	if errors.Is(err, store.ErrPreconditionFailed) {
		// Lost a race with another submission or a status change; re-read
		// for the precise rejection.
		current, gerr := s.store.Orders().Get(ctx, orderID)
		if gerr != nil {
			return nil, gerr
		}
		if current.Feedback != nil {
			return nil, FeedbackExistsError{OrderID: orderID}
		}
		return nil, validationErrorf("feedback requires a delivered order, not %s", current.Status)
	}
	if err != nil {
		return nil, err
	}

	order.Feedback = &fb
	return order, nil
}
