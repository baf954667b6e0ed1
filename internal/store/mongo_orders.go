package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

type mongoOrders struct {
	db *mongo.Database
}

func (s *mongoOrders) collection() *mongo.Collection {
	return s.db.Collection("orders")
}

func (s *mongoOrders) Create(ctx context.Context, o *models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.collection().InsertOne(ctx, o)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = id
	}
	return nil
}

func (s *mongoOrders) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var order models.Order
	err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *mongoOrders) ListByCustomer(ctx context.Context, customerID primitive.ObjectID, page, limit int64) ([]models.Order, error) {
	return s.list(ctx, bson.M{"customerId": customerID}, page, limit)
}

func (s *mongoOrders) ListByFarmer(ctx context.Context, farmerID primitive.ObjectID, page, limit int64) ([]models.Order, error) {
	return s.list(ctx, bson.M{"farmerId": farmerID}, page, limit)
}

func (s *mongoOrders) list(ctx context.Context, filter bson.M, page, limit int64) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *mongoOrders) AttachSession(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.collection().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"payment.sessionId": sessionID,
			"updatedAt":         time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoOrders) Cancel(ctx context.Context, id primitive.ObjectID, paymentStatus string, requirePaymentPending bool) (*models.Order, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"_id": id}
	if requirePaymentPending {
		filter["payment.status"] = models.PaymentStatusPending
	} else {
		filter["payment.status"] = bson.M{"$nin": bson.A{
			models.PaymentStatusCancelled,
			models.PaymentStatusExpired,
		}}
	}

	update := bson.M{"$set": bson.M{
		"status":         models.OrderStatusCancelled,
		"payment.status": paymentStatus,
		"updatedAt":      time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err := s.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if err == mongo.ErrNoDocuments {
		existing, gerr := s.Get(ctx, id)
		if gerr != nil {
			return nil, false, gerr
		}
		if existing.Status == models.OrderStatusCancelled {
			return existing, false, nil
		}
		return existing, false, ErrPreconditionFailed
	}
	if err != nil {
		return nil, false, err
	}
	return &order, true, nil
}

func (s *mongoOrders) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.collection().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoOrders) SetFeedback(ctx context.Context, id primitive.ObjectID, fb models.Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"_id":      id,
		"status":   models.OrderStatusDelivered,
		"feedback": nil,
	}
	res, err := s.collection().UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"feedback": fb, "updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		exists, cerr := s.collection().CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return cerr
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrPreconditionFailed
	}
	return nil
}

func (s *mongoOrders) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
