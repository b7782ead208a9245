package repository

import (
	"context"
	"errors"
	"time"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongodbCouponRepository implements CouponRepository using MongoDB
type mongodbCouponRepository struct {
	collection *mongo.Collection
}

// NewCouponRepository creates a new MongoDB-based coupon repository
func NewCouponRepository(db *mongo.Database) CouponRepository {
	return &mongodbCouponRepository{
		collection: db.Collection(CollectionCoupons),
	}
}

// Create creates a new coupon
func (r *mongodbCouponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	if coupon.ID.IsZero() {
		coupon.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, coupon)
	return err
}

// Update replaces the editable fields of a coupon
func (r *mongodbCouponRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": coupon.ID, "shop_id": coupon.ShopID},
		bson.M{"$set": bson.M{
			"title":       coupon.Title,
			"description": coupon.Description,
			"conditions":  coupon.Conditions,
			"notes":       coupon.Notes,
			"image_url":   coupon.ImageURL,
			"is_active":   coupon.IsActive,
			"updated_at":  coupon.UpdatedAt,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrCouponNotFound
	}
	return nil
}

// GetByID retrieves a coupon scoped to a shop
func (r *mongodbCouponRepository) GetByID(ctx context.Context, shopID, id primitive.ObjectID) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "shop_id": shopID}).Decode(&coupon)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrCouponNotFound
		}
		return nil, err
	}
	return &coupon, nil
}

// List returns every coupon of a shop, newest first
func (r *mongodbCouponRepository) List(ctx context.Context, shopID primitive.ObjectID) ([]*model.Coupon, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"shop_id": shopID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	coupons := []*model.Coupon{}
	if err := cursor.All(ctx, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

// BumpIssueSeq atomically increments the coupon's issuance counter
func (r *mongodbCouponRepository) BumpIssueSeq(ctx context.Context, shopID, id primitive.ObjectID) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "shop_id": shopID},
		bson.M{
			"$inc": bson.M{"issue_seq": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&coupon)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrCouponNotFound
		}
		return nil, err
	}
	return &coupon, nil
}

// Count returns the number of coupons of a shop
func (r *mongodbCouponRepository) Count(ctx context.Context, shopID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"shop_id": shopID})
}
