package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned when a conditional stock decrement
	// does not match because on-hand quantity is too low.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPreconditionFailed is returned when a conditional update matched
	// the document id but not the required state.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	FarmerID    *primitive.ObjectID
	VisibleOnly bool
	Page        int64
	Limit       int64
}

// ProductStore is the catalog store consumed by the order workflow.
type ProductStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id, farmerID primitive.ObjectID) error
	// DecrementStock decrements on-hand quantity only when at least qty
	// units remain; ErrInsufficientStock otherwise.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

// OrderStore holds order documents with their embedded payment sub-record.
type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID primitive.ObjectID, page, limit int64) ([]models.Order, error)
	ListByFarmer(ctx context.Context, farmerID primitive.ObjectID, page, limit int64) ([]models.Order, error)
	// AttachSession persists the provider session id onto the payment
	// sub-record of a pending order.
	AttachSession(ctx context.Context, id primitive.ObjectID, sessionID string) error
	// Cancel sets status=cancelled and payment.status=paymentStatus. With
	// requirePaymentPending it refuses orders whose payment already
	// completed. Returns the resulting order and whether this call changed
	// it; cancelling an already-cancelled order returns (order, false, nil).
	Cancel(ctx context.Context, id primitive.ObjectID, paymentStatus string, requirePaymentPending bool) (*models.Order, bool, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
	// SetFeedback stores feedback only while the order is delivered and has
	// none yet; ErrPreconditionFailed otherwise.
	SetFeedback(ctx context.Context, id primitive.ObjectID, fb models.Feedback) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// NotificationStore appends farmer notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Store is the pluggable storage backend, selected once at startup.
// Request handlers never branch on which implementation is active.
type Store interface {
	Products() ProductStore
	Orders() OrderStore
	Notifications() NotificationStore

	// ConfirmOrder atomically flips payment.status pending->completed and
	// status pending->confirmed, then decrements stock for every line item,
	// all inside one transaction. The boolean reports whether this call
	// performed the confirmation; a second call for the same order returns
	// (order, false, nil) so duplicate payment events stay side-effect free.
	ConfirmOrder(ctx context.Context, orderID primitive.ObjectID, paymentID string) (*models.Order, bool, error)
}
