package memory

import (
	"context"
	"slices"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type scheduleRepo struct{ s *Store }

func (r *scheduleRepo) Create(_ context.Context, sc *model.Schedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sc.ID.IsZero() {
		sc.ID = primitive.NewObjectID()
	}
	r.s.schedules[sc.ID] = *sc
	return nil
}

func (r *scheduleRepo) Update(_ context.Context, sc *model.Schedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.schedules[sc.ID]
	if !ok || cur.ShopID != sc.ShopID {
		return apperrors.ErrScheduleNotFound
	}
	cur.Name = sc.Name
	cur.StartTime = sc.StartTime
	cur.EndTime = sc.EndTime
	cur.MaxAcquisitions = sc.MaxAcquisitions
	cur.ValidFrom = sc.ValidFrom
	cur.ValidUntil = sc.ValidUntil
	cur.IsActive = sc.IsActive
	cur.UpdatedAt = sc.UpdatedAt
	r.s.schedules[sc.ID] = cur
	return nil
}

func (r *scheduleRepo) Delete(_ context.Context, shopID, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.schedules[id]
	if !ok || cur.ShopID != shopID {
		return apperrors.ErrScheduleNotFound
	}
	delete(r.s.schedules, id)
	return nil
}

func (r *scheduleRepo) GetByID(_ context.Context, shopID, id primitive.ObjectID) (*model.Schedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sc, ok := r.s.schedules[id]
	if !ok || sc.ShopID != shopID {
		return nil, apperrors.ErrScheduleNotFound
	}
	return &sc, nil
}

func (r *scheduleRepo) List(_ context.Context, shopID primitive.ObjectID) ([]*model.Schedule, error) {
	return r.filter(func(sc *model.Schedule) bool { return sc.ShopID == shopID }), nil
}

func (r *scheduleRepo) ListActive(_ context.Context) ([]*model.Schedule, error) {
	return r.filter(func(sc *model.Schedule) bool { return sc.IsActive }), nil
}

func (r *scheduleRepo) filter(keep func(*model.Schedule) bool) []*model.Schedule {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Schedule{}
	for _, sc := range r.s.schedules {
		sc := sc
		if keep(&sc) {
			out = append(out, &sc)
		}
	}
	slices.SortFunc(out, func(a, b *model.Schedule) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (r *scheduleRepo) SetLastProcessed(_ context.Context, id primitive.ObjectID, date string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc, ok := r.s.schedules[id]
	if !ok {
		return apperrors.ErrScheduleNotFound
	}
	if date > sc.LastBatchProcessedDate {
		sc.LastBatchProcessedDate = date
		r.s.schedules[id] = sc
	}
	return nil
}

func (r *scheduleRepo) CountByCoupon(_ context.Context, couponID primitive.ObjectID) (int64, error) {
	return int64(len(r.filter(func(sc *model.Schedule) bool { return sc.CouponID == couponID }))), nil
}

func (r *scheduleRepo) CountActive(_ context.Context, shopID primitive.ObjectID) (int64, error) {
	return int64(len(r.filter(func(sc *model.Schedule) bool { return sc.ShopID == shopID && sc.IsActive }))), nil
}
