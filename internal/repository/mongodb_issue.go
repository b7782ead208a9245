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

// mongodbIssueRepository implements IssueRepository using MongoDB
type mongodbIssueRepository struct {
	collection *mongo.Collection
}

// NewIssueRepository creates a new MongoDB-based issue repository
func NewIssueRepository(db *mongo.Database) IssueRepository {
	return &mongodbIssueRepository{
		collection: db.Collection(CollectionIssues),
	}
}

// Create inserts a new issue
func (r *mongodbIssueRepository) Create(ctx context.Context, issue *model.Issue) error {
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, issue)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *mongodbIssueRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Issue, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongodbIssueRepository) GetBySlot(ctx context.Context, scheduleID primitive.ObjectID, start time.Time) (*model.Issue, error) {
	return r.findOne(ctx, bson.M{"schedule_id": scheduleID, "start_datetime": start})
}

func (r *mongodbIssueRepository) findOne(ctx context.Context, filter bson.M) (*model.Issue, error) {
	var issue model.Issue
	err := r.collection.FindOne(ctx, filter).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrIssueNotFound
		}
		return nil, err
	}
	return &issue, nil
}

func liveFilter(now time.Time) bson.M {
	return bson.M{
		"start_datetime": bson.M{"$lte": now},
		"end_datetime":   bson.M{"$gt": now},
	}
}

// ListLive returns issues of a shop with start <= now < end, earliest end first
func (r *mongodbIssueRepository) ListLive(ctx context.Context, shopID primitive.ObjectID, now time.Time) ([]*model.Issue, error) {
	filter := liveFilter(now)
	filter["shop_id"] = shopID
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "end_datetime", Value: 1}}))
}

func (r *mongodbIssueRepository) ListLiveByCoupon(ctx context.Context, couponID primitive.ObjectID, now time.Time) ([]*model.Issue, error) {
	filter := liveFilter(now)
	filter["coupon_id"] = couponID
	return r.find(ctx, filter, options.Find())
}

func (r *mongodbIssueRepository) ListBySchedule(ctx context.Context, scheduleID primitive.ObjectID, from time.Time) ([]*model.Issue, error) {
	filter := bson.M{
		"schedule_id":  scheduleID,
		"end_datetime": bson.M{"$gt": from},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_datetime", Value: 1}}))
}

// DeleteUnopened deletes the issue only while it is still unopened and
// untouched, so it cannot race an acquisition.
func (r *mongodbIssueRepository) DeleteUnopened(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":                  id,
		"start_datetime":       bson.M{"$gt": now},
		"current_acquisitions": 0,
	})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

func (r *mongodbIssueRepository) ListRecent(ctx context.Context, shopID primitive.ObjectID, limit int64) ([]*model.Issue, error) {
	return r.find(ctx, bson.M{"shop_id": shopID},
		options.Find().SetSort(bson.D{{Key: "issued_at", Value: -1}}).SetLimit(limit))
}

func (r *mongodbIssueRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Issue, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	issues := []*model.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// ReserveSlot atomically increments current_acquisitions of an open issue
// that is below its cap
func (r *mongodbIssueRepository) ReserveSlot(ctx context.Context, id primitive.ObjectID, now time.Time) (*model.Issue, error) {
	filter := liveFilter(now)
	filter["_id"] = id
	filter["$or"] = bson.A{
		bson.M{"max_acquisitions": nil},
		bson.M{"$expr": bson.M{"$lt": bson.A{"$current_acquisitions", "$max_acquisitions"}}},
	}

	var issue model.Issue
	err := r.collection.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$inc": bson.M{"current_acquisitions": 1}}, // Atomic increment
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetUpsert(false),
	).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrSlotUnavailable
		}
		return nil, err
	}
	return &issue, nil
}

// Stop moves end_datetime to now. The update is conditioned on the end it
// read so that a concurrent stop cannot be overwritten.
func (r *mongodbIssueRepository) Stop(ctx context.Context, id primitive.ObjectID, actorID string, now time.Time) (*model.Issue, error) {
	issue, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !now.Before(issue.EndDateTime) {
		return issue, nil
	}

	duration := int(now.Sub(issue.StartDateTime) / time.Minute)
	if duration < 0 {
		duration = 0
	}

	var stopped model.Issue
	err = r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "end_datetime": issue.EndDateTime},
		bson.M{"$set": bson.M{
			"end_datetime":     now,
			"duration_minutes": duration,
			"stopped_at":       now,
			"stopped_by":       actorID,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&stopped)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Someone else moved the end first
			return r.GetByID(ctx, id)
		}
		return nil, err
	}
	return &stopped, nil
}

func (r *mongodbIssueRepository) CountByCoupon(ctx context.Context, couponID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"coupon_id": couponID})
}

func (r *mongodbIssueRepository) CountLiveByCoupon(ctx context.Context, couponID primitive.ObjectID, now time.Time) (int64, error) {
	filter := liveFilter(now)
	filter["coupon_id"] = couponID
	return r.collection.CountDocuments(ctx, filter)
}
