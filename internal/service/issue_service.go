package service

import (
	"context"
	"errors"
	"log"
	"time"

	"coupon-scheduler/internal/cache"
	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository"
	"coupon-scheduler/internal/schedule"
	"coupon-scheduler/internal/status"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// MaxIssueDurationMinutes bounds a manual issuance to one week.
	MaxIssueDurationMinutes = 10080

	// BatchActor is recorded as issued_by on materialized issues.
	BatchActor = "batch"
)

// ParseID converts a hex path parameter into an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperrors.ErrInvalidID
	}
	return id, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

// IssueService tracks issue lifecycles: materialization, acquisition,
// early stop and manual issuance.
type IssueService struct {
	tx            repository.Transactor
	coupons       repository.CouponRepository
	issues        repository.IssueRepository
	acquisitions  repository.AcquisitionRepository
	notifications repository.NotificationRepository
	cache         cache.ActiveIssueCache
	now           func() time.Time
}

// NewIssueService creates a new issue service
func NewIssueService(
	tx repository.Transactor,
	coupons repository.CouponRepository,
	issues repository.IssueRepository,
	acquisitions repository.AcquisitionRepository,
	notifications repository.NotificationRepository,
	activeIssues cache.ActiveIssueCache,
) *IssueService {
	if activeIssues == nil {
		activeIssues = cache.Noop{}
	}
	return &IssueService{
		tx:            tx,
		coupons:       coupons,
		issues:        issues,
		acquisitions:  acquisitions,
		notifications: notifications,
		cache:         activeIssues,
		now:           time.Now,
	}
}

func issueKey(id primitive.ObjectID) string  { return "issue:" + id.Hex() }
func couponKey(id primitive.ObjectID) string { return "coupon:" + id.Hex() }

// Materialize creates the batch issue for one schedule window. When the
// window was already materialized the existing issue is returned with
// created=false.
func (s *IssueService) Materialize(ctx context.Context, sched *model.Schedule, coupon *model.Coupon, w schedule.Window) (*model.Issue, bool, error) {
	scheduleID := sched.ID
	issue := &model.Issue{
		ShopID:          sched.ShopID,
		CouponID:        sched.CouponID,
		ScheduleID:      &scheduleID,
		IssueType:       model.IssueTypeBatchGenerated,
		StartDateTime:   w.Start,
		EndDateTime:     w.End,
		DurationMinutes: w.DurationMinutes(),
		MaxAcquisitions: copyInt(sched.MaxAcquisitions),
		IssuedBy:        BatchActor,
		IssuedAt:        s.now(),
		Coupon:          coupon.Ref(),
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			existing, ferr := s.issues.GetBySlot(ctx, sched.ID, w.Start)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.cache.Invalidate(ctx, issue.ShopID)
	return issue, true, nil
}

// Reconcile lines up the schedule's existing batch issues in [from, horizon)
// with windows, the windows the schedule produces now. Issues that have not
// opened, were not stopped and no longer match a window or the cap are
// deleted. Windows overlapping an issue that stays are dropped, so an edited
// schedule never puts two issues on one day. It returns the windows left to
// materialize and the withdrawn issues.
func (s *IssueService) Reconcile(ctx context.Context, sched *model.Schedule, windows []schedule.Window, from, horizon time.Time) ([]schedule.Window, []*model.Issue, error) {
	now := s.now()
	existing, err := s.issues.ListBySchedule(ctx, sched.ID, from)
	if err != nil {
		return nil, nil, err
	}

	var kept, withdrawn []*model.Issue
	for _, issue := range existing {
		if !issue.StartDateTime.Before(horizon) {
			continue
		}
		if issue.StartDateTime.After(now) && issue.StoppedAt == nil && !matchesWindow(issue, sched, windows) {
			ok, err := s.issues.DeleteUnopened(ctx, issue.ID, now)
			if err != nil {
				return nil, withdrawn, err
			}
			if ok {
				withdrawn = append(withdrawn, issue)
				continue
			}
		}
		kept = append(kept, issue)
	}

	pending := make([]schedule.Window, 0, len(windows))
	for _, w := range windows {
		if !blocked(w, kept) {
			pending = append(pending, w)
		}
	}
	return pending, withdrawn, nil
}

func matchesWindow(issue *model.Issue, sched *model.Schedule, windows []schedule.Window) bool {
	if !sameCap(issue.MaxAcquisitions, sched.MaxAcquisitions) {
		return false
	}
	for _, w := range windows {
		if sameSlot(issue, w) {
			return true
		}
	}
	return false
}

// blocked reports whether w overlaps a kept issue other than its own.
func blocked(w schedule.Window, kept []*model.Issue) bool {
	for _, issue := range kept {
		if issue.StartDateTime.Equal(w.Start) {
			// Materialize returns the issue already in this slot
			continue
		}
		if issue.StartDateTime.Before(w.End) && w.Start.Before(issue.EndDateTime) {
			return true
		}
	}
	return false
}

func sameSlot(issue *model.Issue, w schedule.Window) bool {
	return issue.StartDateTime.Equal(w.Start) && issue.EndDateTime.Equal(w.End)
}

func sameCap(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Acquire records that userID took one slot of an issue of the shop. A user
// who already holds an active acquisition gets it back unchanged with
// created=false.
func (s *IssueService) Acquire(ctx context.Context, shopID, issueID primitive.ObjectID, userID, userName string) (*model.Acquisition, bool, error) {
	var (
		acquisition *model.Acquisition
		issue       *model.Issue
		created     bool
	)

	err := s.tx.WithTransaction(ctx, issueKey(issueID), func(ctx context.Context) error {
		acquisition, issue, created = nil, nil, false
		now := s.now()

		current, err := s.issues.GetByID(ctx, issueID)
		if err != nil {
			return err
		}
		if current.ShopID != shopID {
			return apperrors.ErrIssueNotFound
		}

		existing, err := s.acquisitions.FindActive(ctx, issueID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			acquisition = existing
			return nil
		}

		if !current.OpenAt(now) {
			return apperrors.ErrWindowClosed
		}
		if current.IsFull() {
			return apperrors.ErrCapacityExceeded
		}

		reserved, err := s.issues.ReserveSlot(ctx, issueID, now)
		if err != nil {
			if errors.Is(err, apperrors.ErrSlotUnavailable) {
				return s.classifyUnavailable(ctx, issueID, now)
			}
			return err
		}

		a := &model.Acquisition{
			ShopID:        reserved.ShopID,
			CouponIssueID: reserved.ID,
			CouponID:      reserved.CouponID,
			UserID:        userID,
			UserName:      userName,
			AcquiredAt:    now,
			ExpiredAt:     reserved.EndDateTime,
			Status:        model.AcquisitionActive,
		}
		if err := s.acquisitions.Create(ctx, a); err != nil {
			return err
		}

		acquisition, issue, created = a, reserved, true
		return nil
	})

	if errors.Is(err, apperrors.ErrAlreadyAcquired) {
		// Lost the insert race to a concurrent request of the same user
		existing, ferr := s.acquisitions.FindActive(ctx, issueID, userID)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}

	if created {
		s.recordNotification(ctx, issue, acquisition)
		s.cache.Invalidate(ctx, issue.ShopID)
	}
	return acquisition, created, nil
}

func (s *IssueService) classifyUnavailable(ctx context.Context, issueID primitive.ObjectID, now time.Time) error {
	current, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return err
	}
	switch {
	case !current.OpenAt(now):
		return apperrors.ErrWindowClosed
	case current.IsFull():
		return apperrors.ErrCapacityExceeded
	default:
		return apperrors.ErrSlotUnavailable
	}
}

func (s *IssueService) recordNotification(ctx context.Context, issue *model.Issue, a *model.Acquisition) {
	n := &model.Notification{
		ShopID:        issue.ShopID,
		AcquisitionID: a.ID,
		CouponIssue: model.IssueRef{
			ID:        issue.ID,
			IssueType: issue.IssueType,
			Coupon:    issue.Coupon,
		},
		UserID:     a.UserID,
		UserName:   a.UserName,
		AcquiredAt: a.AcquiredAt,
		CreatedAt:  a.AcquiredAt,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		log.Printf("[NOTIFY] Failed to record acquisition %s: %v", a.ID.Hex(), err)
	}
}

// Stop ends a live or upcoming issue now. Stopping an issue that already
// ended returns it unchanged.
func (s *IssueService) Stop(ctx context.Context, shopID, issueID primitive.ObjectID, actorID string) (*model.Issue, error) {
	var stopped *model.Issue
	err := s.tx.WithTransaction(ctx, issueKey(issueID), func(ctx context.Context) error {
		issue, err := s.issues.GetByID(ctx, issueID)
		if err != nil {
			return err
		}
		if issue.ShopID != shopID {
			return apperrors.ErrIssueNotFound
		}
		stopped, err = s.issues.Stop(ctx, issueID, actorID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, shopID)
	return stopped, nil
}

// IssueNow stops every live issue of the coupon and opens a manual issue
// [now, now+duration). Concurrent calls for one coupon are serialized.
func (s *IssueService) IssueNow(ctx context.Context, shopID, couponID primitive.ObjectID, actorID string, req model.IssueNowRequest) (*model.Issue, error) {
	fe := apperrors.FieldErrors{}
	if req.DurationMinutes < 1 || req.DurationMinutes > MaxIssueDurationMinutes {
		fe.Add("duration_minutes", "duration must be between 1 and 10080 minutes")
	}
	if req.MaxAcquisitions != nil && *req.MaxAcquisitions < 1 {
		fe.Add("max_acquisitions", "max acquisitions must be at least 1")
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	var issue *model.Issue
	err := s.tx.WithTransaction(ctx, couponKey(couponID), func(ctx context.Context) error {
		now := s.now()

		coupon, err := s.coupons.BumpIssueSeq(ctx, shopID, couponID)
		if err != nil {
			return err
		}

		live, err := s.issues.ListLiveByCoupon(ctx, couponID, now)
		if err != nil {
			return err
		}
		for _, prev := range live {
			if _, err := s.issues.Stop(ctx, prev.ID, actorID, now); err != nil {
				return err
			}
		}

		issue = &model.Issue{
			ShopID:          shopID,
			CouponID:        couponID,
			IssueType:       model.IssueTypeManual,
			StartDateTime:   now,
			EndDateTime:     now.Add(time.Duration(req.DurationMinutes) * time.Minute),
			DurationMinutes: req.DurationMinutes,
			MaxAcquisitions: copyInt(req.MaxAcquisitions),
			IssuedBy:        actorID,
			IssuedAt:        now,
			Coupon:          coupon.Ref(),
		}
		return s.issues.Create(ctx, issue)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, shopID)
	return issue, nil
}

// ListActive returns the shop's live issues projected at now, soonest end
// first.
func (s *IssueService) ListActive(ctx context.Context, shopID primitive.ObjectID) ([]status.IssueView, error) {
	now := s.now()

	issues, ok := s.cache.Get(ctx, shopID)
	if !ok {
		var err error
		issues, err = s.issues.ListLive(ctx, shopID, now)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, shopID, issues)
	}

	views := make([]status.IssueView, 0, len(issues))
	for _, issue := range issues {
		// Cached entries may have ended since they were stored
		if !issue.OpenAt(now) {
			continue
		}
		views = append(views, status.View(issue, now))
	}
	return views, nil
}

// Get returns one issue of the shop projected at now.
func (s *IssueService) Get(ctx context.Context, shopID, issueID primitive.ObjectID) (*status.IssueView, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.ShopID != shopID {
		return nil, apperrors.ErrIssueNotFound
	}
	v := status.View(issue, s.now())
	return &v, nil
}

// Acquisitions lists who acquired an issue of the shop.
func (s *IssueService) Acquisitions(ctx context.Context, shopID, issueID primitive.ObjectID) ([]model.AcquisitionResponse, error) {
	if _, err := s.Get(ctx, shopID, issueID); err != nil {
		return nil, err
	}
	list, err := s.acquisitions.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]model.AcquisitionResponse, 0, len(list))
	for _, a := range list {
		out = append(out, model.NewAcquisitionResponse(a, false, now))
	}
	return out, nil
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
