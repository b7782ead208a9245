package database

import (
	"context"
	"fmt"
	"time"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect establishes a connection to MongoDB
func Connect(ctx context.Context, uri, dbName string) (*MongoDB, error) {
	clientOptions := options.Client().ApplyURI(uri)

	// Set connection timeout
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	mongoDB := &MongoDB{
		Client:   client,
		Database: client.Database(dbName),
	}

	if err := mongoDB.CreateIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return mongoDB, nil
}

type collectionIndex struct {
	collection string
	model      mongo.IndexModel
}

func indexes() []collectionIndex {
	return []collectionIndex{
		// One active acquisition per (issue, user)
		{repository.CollectionAcquisitions, mongo.IndexModel{
			Keys: bson.D{
				{Key: "coupon_issue_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": model.AcquisitionActive}).
				SetName("issue_user_active_unique"),
		}},
		{repository.CollectionAcquisitions, mongo.IndexModel{
			Keys:    bson.D{{Key: "shop_id", Value: 1}, {Key: "acquired_at", Value: -1}},
			Options: options.Index().SetName("shop_acquired_at"),
		}},

		// The batch materializes each (schedule, start) at most once. Manual
		// issues have no schedule_id and are left out of the index.
		{repository.CollectionIssues, mongo.IndexModel{
			Keys: bson.D{
				{Key: "schedule_id", Value: 1},
				{Key: "start_datetime", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"schedule_id": bson.M{"$exists": true}}).
				SetName("schedule_start_unique"),
		}},
		{repository.CollectionIssues, mongo.IndexModel{
			Keys: bson.D{
				{Key: "shop_id", Value: 1},
				{Key: "start_datetime", Value: 1},
				{Key: "end_datetime", Value: 1},
			},
			Options: options.Index().SetName("shop_window"),
		}},
		{repository.CollectionIssues, mongo.IndexModel{
			Keys:    bson.D{{Key: "coupon_id", Value: 1}, {Key: "end_datetime", Value: 1}},
			Options: options.Index().SetName("coupon_end"),
		}},

		{repository.CollectionSchedules, mongo.IndexModel{
			Keys:    bson.D{{Key: "shop_id", Value: 1}, {Key: "is_active", Value: 1}},
			Options: options.Index().SetName("shop_active"),
		}},
		{repository.CollectionCoupons, mongo.IndexModel{
			Keys:    bson.D{{Key: "shop_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("shop_created_at"),
		}},
		{repository.CollectionNotifications, mongo.IndexModel{
			Keys:    bson.D{{Key: "shop_id", Value: 1}, {Key: "is_read", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("shop_unread"),
		}},

		{repository.CollectionOperators, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		}},
		{repository.CollectionShops, mongo.IndexModel{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("slug_unique"),
		}},
	}
}

// CreateIndexes creates all necessary indexes for the application
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	for _, idx := range indexes() {
		if _, err := m.Database.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create %s index on %s: %w", *idx.model.Options.Name, idx.collection, err)
		}
	}
	return nil
}

// Disconnect closes the MongoDB connection
func (m *MongoDB) Disconnect(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
