package repository

import (
	"context"
	"time"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongodbNotificationRepository struct {
	collection *mongo.Collection
}

// NewNotificationRepository creates a new MongoDB-based notification repository
func NewNotificationRepository(db *mongo.Database) NotificationRepository {
	return &mongodbNotificationRepository{
		collection: db.Collection(CollectionNotifications),
	}
}

func (r *mongodbNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, n)
	return err
}

func (r *mongodbNotificationRepository) List(ctx context.Context, shopID primitive.ObjectID, limit int64) ([]*model.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, bson.M{"shop_id": shopID}, opts)
}

func (r *mongodbNotificationRepository) ListForBanner(ctx context.Context, shopID primitive.ObjectID) ([]*model.Notification, error) {
	return r.find(ctx,
		bson.M{"shop_id": shopID, "is_read": false, "banner_shown": false},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *mongodbNotificationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Notification, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []*model.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *mongodbNotificationRepository) CountUnread(ctx context.Context, shopID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"shop_id": shopID, "is_read": false})
}

func (r *mongodbNotificationRepository) MarkRead(ctx context.Context, shopID, id primitive.ObjectID, now time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "shop_id": shopID},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

func (r *mongodbNotificationRepository) MarkAllRead(ctx context.Context, shopID primitive.ObjectID, now time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"shop_id": shopID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongodbNotificationRepository) MarkBannerShown(ctx context.Context, shopID, id primitive.ObjectID, now time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "shop_id": shopID},
		bson.M{"$set": bson.M{"banner_shown": true, "banner_shown_at": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}
