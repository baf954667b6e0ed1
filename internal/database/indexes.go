package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"backend/internal/logger"
)

func EnsureProductIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("products").Indexes()

	farmerIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "farmerId", Value: 1}},
		Options: options.Index().SetName("farmerId_index"),
	}

	_, err := indexes.CreateOne(ctx, farmerIndex)
	if err != nil {
		logger.L().Warn("product index error", zap.Error(err))
		return err
	}
	return nil
}

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "customerId", Value: 1}},
			Options: options.Index().SetName("customerId_index"),
		},
		{
			Keys:    bson.D{{Key: "farmerId", Value: 1}},
			Options: options.Index().SetName("farmerId_index"),
		},
		{
			Keys: bson.D{{Key: "payment.sessionId", Value: 1}},
			Options: options.Index().
				SetName("payment_sessionId_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"payment.sessionId": bson.M{"$exists": true},
				}),
		},
	}

	_, err := indexes.CreateMany(ctx, models)
	if err != nil {
		logger.L().Warn("order index error", zap.Error(err))
		return err
	}
	return nil
}

func EnsureNotificationIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("notifications").Indexes()

	farmerIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "farmerId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("farmerId_createdAt_index"),
	}

	_, err := indexes.CreateOne(ctx, farmerIndex)
	if err != nil {
		logger.L().Warn("notification index error", zap.Error(err))
		return err
	}
	return nil
}
