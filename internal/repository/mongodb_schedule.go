package repository

import (
	"context"
	"errors"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongodbScheduleRepository implements ScheduleRepository using MongoDB
type mongodbScheduleRepository struct {
	collection *mongo.Collection
}

// NewScheduleRepository creates a new MongoDB-based schedule repository
func NewScheduleRepository(db *mongo.Database) ScheduleRepository {
	return &mongodbScheduleRepository{
		collection: db.Collection(CollectionSchedules),
	}
}

func (r *mongodbScheduleRepository) Create(ctx context.Context, s *model.Schedule) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, s)
	return err
}

// Update replaces the mutable fields. coupon_id and the day pattern are
// fixed at creation and are not written here.
func (r *mongodbScheduleRepository) Update(ctx context.Context, s *model.Schedule) error {
	set := bson.M{
		"schedule_name": s.Name,
		"start_time":    s.StartTime,
		"end_time":      s.EndTime,
		"valid_from":    s.ValidFrom,
		"is_active":     s.IsActive,
		"updated_at":    s.UpdatedAt,
	}
	unset := bson.M{}
	if s.MaxAcquisitions != nil {
		set["max_acquisitions"] = *s.MaxAcquisitions
	} else {
		unset["max_acquisitions"] = ""
	}
	if s.ValidUntil != "" {
		set["valid_until"] = s.ValidUntil
	} else {
		unset["valid_until"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": s.ID, "shop_id": s.ShopID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrScheduleNotFound
	}
	return nil
}

func (r *mongodbScheduleRepository) Delete(ctx context.Context, shopID, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "shop_id": shopID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrScheduleNotFound
	}
	return nil
}

func (r *mongodbScheduleRepository) GetByID(ctx context.Context, shopID, id primitive.ObjectID) (*model.Schedule, error) {
	var s model.Schedule
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "shop_id": shopID}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *mongodbScheduleRepository) List(ctx context.Context, shopID primitive.ObjectID) ([]*model.Schedule, error) {
	return r.find(ctx, bson.M{"shop_id": shopID})
}

func (r *mongodbScheduleRepository) ListActive(ctx context.Context) ([]*model.Schedule, error) {
	return r.find(ctx, bson.M{"is_active": true})
}

func (r *mongodbScheduleRepository) find(ctx context.Context, filter bson.M) ([]*model.Schedule, error) {
	cursor, err := r.collection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	schedules := []*model.Schedule{}
	if err := cursor.All(ctx, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *mongodbScheduleRepository) SetLastProcessed(ctx context.Context, id primitive.ObjectID, date string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$max": bson.M{"last_batch_processed_date": date}},
	)
	return err
}

func (r *mongodbScheduleRepository) CountByCoupon(ctx context.Context, couponID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"coupon_id": couponID})
}

func (r *mongodbScheduleRepository) CountActive(ctx context.Context, shopID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"shop_id": shopID, "is_active": true})
}
