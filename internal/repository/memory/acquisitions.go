package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type acquisitionRepo struct{ s *Store }

func (r *acquisitionRepo) Create(_ context.Context, a *model.Acquisition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.Status == model.AcquisitionActive {
		for _, cur := range r.s.acquisitions {
			if cur.Status == model.AcquisitionActive && cur.CouponIssueID == a.CouponIssueID && cur.UserID == a.UserID {
				return apperrors.ErrAlreadyAcquired
			}
		}
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	r.s.acquisitions[a.ID] = *a
	return nil
}

func (r *acquisitionRepo) FindActive(_ context.Context, issueID primitive.ObjectID, userID string) (*model.Acquisition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.acquisitions {
		if a.Status == model.AcquisitionActive && a.CouponIssueID == issueID && a.UserID == userID {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *acquisitionRepo) ListByIssue(_ context.Context, issueID primitive.ObjectID) ([]*model.Acquisition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Acquisition{}
	for _, a := range r.s.acquisitions {
		if a.CouponIssueID == issueID {
			a := a
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(a, b *model.Acquisition) int {
		if c := a.AcquiredAt.Compare(b.AcquiredAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.Hex(), b.ID.Hex())
	})
	return out, nil
}

func (r *acquisitionRepo) CountSince(_ context.Context, shopID primitive.ObjectID, since time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, a := range r.s.acquisitions {
		if a.ShopID == shopID && !a.AcquiredAt.Before(since) {
			n++
		}
	}
	return n, nil
}
