package memory

import (
	"context"
	"strings"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type operatorRepo struct{ s *Store }

func (r *operatorRepo) GetByEmail(_ context.Context, email string) (*model.Operator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, op := range r.s.operators {
		if op.Email == email {
			return &op, nil
		}
	}
	return nil, apperrors.ErrOperatorNotFound
}

func (r *operatorRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.Operator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	op, ok := r.s.operators[id]
	if !ok {
		return nil, apperrors.ErrOperatorNotFound
	}
	return &op, nil
}

func (r *operatorRepo) Create(_ context.Context, op *model.Operator) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	op.Email = strings.ToLower(op.Email)
	for _, cur := range r.s.operators {
		if cur.Email == op.Email {
			return apperrors.ErrDuplicate
		}
	}
	if op.ID.IsZero() {
		op.ID = primitive.NewObjectID()
	}
	r.s.operators[op.ID] = *op
	return nil
}

func (r *operatorRepo) GetShop(_ context.Context, id primitive.ObjectID) (*model.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	shop, ok := r.s.shops[id]
	if !ok {
		return nil, apperrors.ErrShopNotFound
	}
	return &shop, nil
}

func (r *operatorRepo) GetShopBySlug(_ context.Context, slug string) (*model.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, shop := range r.s.shops {
		if shop.Slug == slug {
			return &shop, nil
		}
	}
	return nil, apperrors.ErrShopNotFound
}

func (r *operatorRepo) CreateShop(_ context.Context, shop *model.Shop) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.shops {
		if cur.Slug == shop.Slug {
			return apperrors.ErrDuplicate
		}
	}
	if shop.ID.IsZero() {
		shop.ID = primitive.NewObjectID()
	}
	r.s.shops[shop.ID] = *shop
	return nil
}
