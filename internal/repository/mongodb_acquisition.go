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

// mongodbAcquisitionRepository implements AcquisitionRepository using MongoDB
type mongodbAcquisitionRepository struct {
	collection *mongo.Collection
}

// NewAcquisitionRepository creates a new MongoDB-based acquisition repository
func NewAcquisitionRepository(db *mongo.Database) AcquisitionRepository {
	return &mongodbAcquisitionRepository{
		collection: db.Collection(CollectionAcquisitions),
	}
}

// Create creates a new acquisition record. The partial unique index on
// (coupon_issue_id, user_id) rejects a second active acquisition.
func (r *mongodbAcquisitionRepository) Create(ctx context.Context, a *model.Acquisition) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrAlreadyAcquired
		}
		return err
	}
	return nil
}

// FindActive returns the user's active acquisition for an issue, or nil
func (r *mongodbAcquisitionRepository) FindActive(ctx context.Context, issueID primitive.ObjectID, userID string) (*model.Acquisition, error) {
	var a model.Acquisition
	err := r.collection.FindOne(ctx, bson.M{
		"coupon_issue_id": issueID,
		"user_id":         userID,
		"status":          model.AcquisitionActive,
	}).Decode(&a)

	if err == nil {
		return &a, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	return nil, err
}

// ListByIssue retrieves all acquisitions of an issue in acquisition order
func (r *mongodbAcquisitionRepository) ListByIssue(ctx context.Context, issueID primitive.ObjectID) ([]*model.Acquisition, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"coupon_issue_id": issueID},
		options.Find().SetSort(bson.D{{Key: "acquired_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	acquisitions := []*model.Acquisition{}
	if err := cursor.All(ctx, &acquisitions); err != nil {
		return nil, err
	}
	return acquisitions, nil
}

func (r *mongodbAcquisitionRepository) CountSince(ctx context.Context, shopID primitive.ObjectID, since time.Time) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"shop_id":     shopID,
		"acquired_at": bson.M{"$gte": since},
	})
}
