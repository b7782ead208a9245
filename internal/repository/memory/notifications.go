package memory

import (
	"context"
	"slices"
	"time"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	r.s.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) List(_ context.Context, shopID primitive.ObjectID, limit int64) ([]*model.Notification, error) {
	out := r.filter(func(n *model.Notification) bool { return n.ShopID == shopID })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *notificationRepo) ListForBanner(_ context.Context, shopID primitive.ObjectID) ([]*model.Notification, error) {
	return r.filter(func(n *model.Notification) bool {
		return n.ShopID == shopID && !n.IsRead && !n.BannerShown
	}), nil
}

// filter returns matching notifications newest first.
func (r *notificationRepo) filter(keep func(*model.Notification) bool) []*model.Notification {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Notification{}
	for _, n := range r.s.notifications {
		n := n
		if keep(&n) {
			out = append(out, &n)
		}
	}
	slices.SortFunc(out, func(a, b *model.Notification) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (r *notificationRepo) CountUnread(_ context.Context, shopID primitive.ObjectID) (int64, error) {
	return int64(len(r.filter(func(n *model.Notification) bool { return n.ShopID == shopID && !n.IsRead }))), nil
}

func (r *notificationRepo) MarkRead(_ context.Context, shopID, id primitive.ObjectID, now time.Time) error {
	return r.update(shopID, id, func(n *model.Notification) {
		n.IsRead = true
		n.ReadAt = &now
	})
}

func (r *notificationRepo) MarkAllRead(_ context.Context, shopID primitive.ObjectID, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, cur := range r.s.notifications {
		if cur.ShopID == shopID && !cur.IsRead {
			cur.IsRead = true
			cur.ReadAt = &now
			r.s.notifications[id] = cur
			n++
		}
	}
	return n, nil
}

func (r *notificationRepo) MarkBannerShown(_ context.Context, shopID, id primitive.ObjectID, now time.Time) error {
	return r.update(shopID, id, func(n *model.Notification) {
		n.BannerShown = true
		n.BannerShownAt = &now
	})
}

func (r *notificationRepo) update(shopID, id primitive.ObjectID, fn func(*model.Notification)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.notifications[id]
	if !ok || cur.ShopID != shopID {
		return apperrors.ErrNotificationNotFound
	}
	fn(&cur)
	r.s.notifications[id] = cur
	return nil
}
