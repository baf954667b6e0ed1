package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// Mongo is the persistent Store implementation.
type Mongo struct {
	db            *mongo.Database
	products      *mongoProducts
	orders        *mongoOrders
	notifications *mongoNotifications
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		db:            db,
		products:      &mongoProducts{db: db},
		orders:        &mongoOrders{db: db},
		notifications: &mongoNotifications{db: db},
	}
}

func (m *Mongo) Products() ProductStore           { return m.products }
func (m *Mongo) Orders() OrderStore               { return m.orders }
func (m *Mongo) Notifications() NotificationStore { return m.notifications }

// errAlreadyProcessed aborts the confirmation transaction when the CAS on
// payment.status does not match; the caller then re-reads the order.
var errAlreadyProcessed = errors.New("order already processed")

func (m *Mongo) ConfirmOrder(ctx context.Context, orderID primitive.ObjectID, paymentID string) (*models.Order, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	session, err := m.db.Client().StartSession()
	if err != nil {
		return nil, false, err
	}
	defer session.EndSession(ctx)

	var confirmed models.Order
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		filter := bson.M{
			"_id":            orderID,
			"payment.status": models.PaymentStatusPending,
		}
		update := bson.M{"$set": bson.M{
			"status":            models.OrderStatusConfirmed,
			"payment.status":    models.PaymentStatusCompleted,
			"payment.paymentId": paymentID,
			"updatedAt":         time.Now(),
		}}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		err := m.db.Collection("orders").FindOneAndUpdate(sessCtx, filter, update, opts).Decode(&confirmed)
		if err == mongo.ErrNoDocuments {
			return nil, errAlreadyProcessed
		}
		if err != nil {
			return nil, err
		}

		for _, item := range confirmed.Items {
			decFilter := bson.M{
				"_id":   item.ProductID,
				"stock": bson.M{"$gte": item.Quantity},
			}
			res, err := m.db.Collection("products").UpdateOne(sessCtx, decFilter, bson.M{
				"$inc": bson.M{"stock": -item.Quantity},
			})
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, ErrInsufficientStock
			}
		}
		return nil, nil
	})

	if errors.Is(err, errAlreadyProcessed) {
		order, gerr := m.orders.Get(ctx, orderID)
		if gerr != nil {
			return nil, false, gerr
		}
		return order, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	m.products.markDepletedProducts(ctx, confirmed.Items)

	return &confirmed, true, nil
}
