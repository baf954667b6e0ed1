package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types.
const (
	NotificationOrderConfirmed = "order_confirmed"
)

// Notification is a back-office message for a farmer. Read state and
// deletion are independent of the linked order's lifecycle.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FarmerID  primitive.ObjectID `bson:"farmerId" json:"farmerId"`
	Type      string             `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	OrderID   primitive.ObjectID `bson:"orderId,omitempty" json:"orderId,omitempty"`
	Read      bool               `bson:"read" json:"read"`
	Metadata  map[string]string  `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
