package orders

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidationError covers missing or malformed request fields and
// business-rule rejections that are the caller's fault.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...interface{}) ValidationError {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an absent product or order.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// InsufficientStockError rejects a cart line that asks for more units
// than are on hand.
type InsufficientStockError struct {
	ProductID primitive.ObjectID
	Available int
	Requested int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available, %d requested",
		e.ProductID.Hex(), e.Available, e.Requested)
}

// UnavailableError rejects a product that is not currently orderable.
type UnavailableError struct {
	ProductID primitive.ObjectID
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available", e.ProductID.Hex())
}

// AuthorizationError reports a non-owner attempting a mutation.
type AuthorizationError struct {
	Message string
}

func (e AuthorizationError) Error() string { return e.Message }

// PaymentIncompleteError is the non-success verification result: the
// provider has not (yet) marked the session paid. Nothing was mutated.
type PaymentIncompleteError struct {
	Status string
}

func (e PaymentIncompleteError) Error() string {
	return fmt.Sprintf("payment not completed: provider status %q", e.Status)
}

// FeedbackExistsError rejects a second feedback submission on an order.
type FeedbackExistsError struct {
	OrderID primitive.ObjectID
}

func (e FeedbackExistsError) Error() string {
	return fmt.Sprintf("feedback already submitted for order %s", e.OrderID.Hex())
}
