package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order status values. Transitions are enforced by the transition table in
// the orders service, not here.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Payment status values for the embedded payment sub-record.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusExpired   = "expired"
)

// OrderItem is a single product entry within an order. Price is the unit
// price captured at order time, after any discount.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Payment is the provider sub-record embedded in an order. Only the order
// workflow mutates it after creation.
type Payment struct {
	Method    string `bson:"method" json:"method"`
	SessionID string `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	PaymentID string `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	Status    string `bson:"status" json:"status"`
}

// ShippingAddress captures where the order is delivered.
type ShippingAddress struct {
	Name    string `bson:"name" json:"name"`
	Phone   string `bson:"phone" json:"phone"`
	Address string `bson:"address" json:"address"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	Pincode string `bson:"pincode,omitempty" json:"pincode,omitempty"`
}

// Feedback is post-delivery feedback, settable exactly once by the owning
// customer while the order is delivered.
type Feedback struct {
	Rating    int       `bson:"rating" json:"rating"`
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Order is the persisted order document. FarmerID is derived from the
// first line item's product; all lines in one order belong to one farmer.
type Order struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerID primitive.ObjectID `bson:"customerId" json:"customerId"`
	FarmerID   primitive.ObjectID `bson:"farmerId" json:"farmerId"`
	Items      []OrderItem        `bson:"items" json:"items"`
	TotalPrice float64            `bson:"totalPrice" json:"totalPrice"`
	Payment    Payment            `bson:"payment" json:"payment"`
	Shipping   ShippingAddress    `bson:"shipping" json:"shipping"`
	Status     string             `bson:"status" json:"status"`
	Feedback   *Feedback          `bson:"feedback,omitempty" json:"feedback,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
