package memory

import (
	"context"
	"slices"
	"time"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type couponRepo struct{ s *Store }

func (r *couponRepo) Create(_ context.Context, c *model.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.s.coupons[c.ID] = *c
	return nil
}

func (r *couponRepo) Update(_ context.Context, c *model.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.coupons[c.ID]
	if !ok || cur.ShopID != c.ShopID {
		return apperrors.ErrCouponNotFound
	}
	cur.Title = c.Title
	cur.Description = c.Description
	cur.Conditions = c.Conditions
	cur.Notes = c.Notes
	cur.ImageURL = c.ImageURL
	cur.IsActive = c.IsActive
	cur.UpdatedAt = c.UpdatedAt
	r.s.coupons[c.ID] = cur
	return nil
}

func (r *couponRepo) GetByID(_ context.Context, shopID, id primitive.ObjectID) (*model.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.coupons[id]
	if !ok || c.ShopID != shopID {
		return nil, apperrors.ErrCouponNotFound
	}
	return &c, nil
}

func (r *couponRepo) List(_ context.Context, shopID primitive.ObjectID) ([]*model.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Coupon{}
	for _, c := range r.s.coupons {
		if c.ShopID == shopID {
			c := c
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.Coupon) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (r *couponRepo) BumpIssueSeq(_ context.Context, shopID, id primitive.ObjectID) (*model.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[id]
	if !ok || c.ShopID != shopID {
		return nil, apperrors.ErrCouponNotFound
	}
	c.IssueSeq++
	c.UpdatedAt = time.Now()
	r.s.coupons[id] = c
	return &c, nil
}

func (r *couponRepo) Count(_ context.Context, shopID primitive.ObjectID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, c := range r.s.coupons {
		if c.ShopID == shopID {
			n++
		}
	}
	return n, nil
}
