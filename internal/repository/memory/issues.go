package memory

import (
	"context"
	"slices"
	"time"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type issueRepo struct{ s *Store }

func (r *issueRepo) Create(_ context.Context, issue *model.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if issue.ScheduleID != nil {
		for _, cur := range r.s.issues {
			if cur.ScheduleID != nil && *cur.ScheduleID == *issue.ScheduleID &&
				cur.StartDateTime.Equal(issue.StartDateTime) {
				return apperrors.ErrDuplicate
			}
		}
	}
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	r.s.issues[issue.ID] = *issue
	return nil
}

func (r *issueRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.Issue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	issue, ok := r.s.issues[id]
	if !ok {
		return nil, apperrors.ErrIssueNotFound
	}
	return &issue, nil
}

func (r *issueRepo) GetBySlot(_ context.Context, scheduleID primitive.ObjectID, start time.Time) (*model.Issue, error) {
	found := r.filter(func(i *model.Issue) bool {
		return i.ScheduleID != nil && *i.ScheduleID == scheduleID && i.StartDateTime.Equal(start)
	})
	if len(found) == 0 {
		return nil, apperrors.ErrIssueNotFound
	}
	return found[0], nil
}

func (r *issueRepo) ListLive(_ context.Context, shopID primitive.ObjectID, now time.Time) ([]*model.Issue, error) {
	out := r.filter(func(i *model.Issue) bool { return i.ShopID == shopID && i.OpenAt(now) })
	slices.SortFunc(out, func(a, b *model.Issue) int { return a.EndDateTime.Compare(b.EndDateTime) })
	return out, nil
}

func (r *issueRepo) ListLiveByCoupon(_ context.Context, couponID primitive.ObjectID, now time.Time) ([]*model.Issue, error) {
	return r.filter(func(i *model.Issue) bool { return i.CouponID == couponID && i.OpenAt(now) }), nil
}

func (r *issueRepo) ListBySchedule(_ context.Context, scheduleID primitive.ObjectID, from time.Time) ([]*model.Issue, error) {
	out := r.filter(func(i *model.Issue) bool {
		return i.ScheduleID != nil && *i.ScheduleID == scheduleID && i.EndDateTime.After(from)
	})
	slices.SortFunc(out, func(a, b *model.Issue) int { return a.StartDateTime.Compare(b.StartDateTime) })
	return out, nil
}

func (r *issueRepo) DeleteUnopened(_ context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	issue, ok := r.s.issues[id]
	if !ok || !issue.StartDateTime.After(now) || issue.CurrentAcquisitions != 0 {
		return false, nil
	}
	delete(r.s.issues, id)
	return true, nil
}

func (r *issueRepo) ListRecent(_ context.Context, shopID primitive.ObjectID, limit int64) ([]*model.Issue, error) {
	out := r.filter(func(i *model.Issue) bool { return i.ShopID == shopID })
	slices.SortFunc(out, func(a, b *model.Issue) int { return b.IssuedAt.Compare(a.IssuedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *issueRepo) filter(keep func(*model.Issue) bool) []*model.Issue {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Issue{}
	for _, i := range r.s.issues {
		i := i
		if keep(&i) {
			out = append(out, &i)
		}
	}
	return out
}

func (r *issueRepo) ReserveSlot(_ context.Context, id primitive.ObjectID, now time.Time) (*model.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	issue, ok := r.s.issues[id]
	if !ok || !issue.OpenAt(now) || issue.IsFull() {
		return nil, apperrors.ErrSlotUnavailable
	}
	issue.CurrentAcquisitions++
	r.s.issues[id] = issue
	return &issue, nil
}

func (r *issueRepo) Stop(_ context.Context, id primitive.ObjectID, actorID string, now time.Time) (*model.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	issue, ok := r.s.issues[id]
	if !ok {
		return nil, apperrors.ErrIssueNotFound
	}
	if !now.Before(issue.EndDateTime) {
		return &issue, nil
	}

	stoppedAt := now
	issue.EndDateTime = now
	issue.StoppedAt = &stoppedAt
	issue.StoppedBy = actorID
	issue.DurationMinutes = int(now.Sub(issue.StartDateTime) / time.Minute)
	if issue.DurationMinutes < 0 {
		issue.DurationMinutes = 0
	}
	r.s.issues[id] = issue
	return &issue, nil
}

func (r *issueRepo) CountByCoupon(_ context.Context, couponID primitive.ObjectID) (int64, error) {
	return int64(len(r.filter(func(i *model.Issue) bool { return i.CouponID == couponID }))), nil
}

func (r *issueRepo) CountLiveByCoupon(_ context.Context, couponID primitive.ObjectID, now time.Time) (int64, error) {
	return int64(len(r.filter(func(i *model.Issue) bool { return i.CouponID == couponID && i.OpenAt(now) }))), nil
}
