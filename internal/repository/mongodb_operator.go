package repository

import (
	"context"
	"errors"
	"strings"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongodbOperatorRepository implements OperatorRepository using MongoDB
type mongodbOperatorRepository struct {
	operators *mongo.Collection
	shops     *mongo.Collection
}

// NewOperatorRepository creates a new MongoDB-based operator repository
func NewOperatorRepository(db *mongo.Database) OperatorRepository {
	return &mongodbOperatorRepository{
		operators: db.Collection(CollectionOperators),
		shops:     db.Collection(CollectionShops),
	}
}

func (r *mongodbOperatorRepository) GetByEmail(ctx context.Context, email string) (*model.Operator, error) {
	return r.findOperator(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *mongodbOperatorRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Operator, error) {
	return r.findOperator(ctx, bson.M{"_id": id})
}

func (r *mongodbOperatorRepository) findOperator(ctx context.Context, filter bson.M) (*model.Operator, error) {
	var op model.Operator
	err := r.operators.FindOne(ctx, filter).Decode(&op)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrOperatorNotFound
		}
		return nil, err
	}
	return &op, nil
}

func (r *mongodbOperatorRepository) Create(ctx context.Context, op *model.Operator) error {
	if op.ID.IsZero() {
		op.ID = primitive.NewObjectID()
	}
	op.Email = strings.ToLower(op.Email)
	_, err := r.operators.InsertOne(ctx, op)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *mongodbOperatorRepository) GetShop(ctx context.Context, id primitive.ObjectID) (*model.Shop, error) {
	return r.findShop(ctx, bson.M{"_id": id})
}

func (r *mongodbOperatorRepository) GetShopBySlug(ctx context.Context, slug string) (*model.Shop, error) {
	return r.findShop(ctx, bson.M{"slug": slug})
}

func (r *mongodbOperatorRepository) findShop(ctx context.Context, filter bson.M) (*model.Shop, error) {
	var shop model.Shop
	err := r.shops.FindOne(ctx, filter).Decode(&shop)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrShopNotFound
		}
		return nil, err
	}
	return &shop, nil
}

func (r *mongodbOperatorRepository) CreateShop(ctx context.Context, shop *model.Shop) error {
	if shop.ID.IsZero() {
		shop.ID = primitive.NewObjectID()
	}
	_, err := r.shops.InsertOne(ctx, shop)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrDuplicate
		}
		return err
	}
	return nil
}
