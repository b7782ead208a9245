package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const defaultActivityLimit = 10

// DashboardService aggregates the shop's overview counters and feed.
type DashboardService struct {
	coupons       repository.CouponRepository
	schedules     repository.ScheduleRepository
	issues        repository.IssueRepository
	acquisitions  repository.AcquisitionRepository
	notifications repository.NotificationRepository
	loc           *time.Location
	now           func() time.Time
}

func NewDashboardService(
	coupons repository.CouponRepository,
	schedules repository.ScheduleRepository,
	issues repository.IssueRepository,
	acquisitions repository.AcquisitionRepository,
	notifications repository.NotificationRepository,
	loc *time.Location,
) *DashboardService {
	return &DashboardService{
		coupons:       coupons,
		schedules:     schedules,
		issues:        issues,
		acquisitions:  acquisitions,
		notifications: notifications,
		loc:           loc,
		now:           time.Now,
	}
}

// Stats counts everything in parallel. "Today" starts at midnight in the
// shop's time zone.
func (s *DashboardService) Stats(ctx context.Context, shopID primitive.ObjectID) (*model.DashboardStats, error) {
	now := s.now()
	y, m, d := now.In(s.loc).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, s.loc)

	var stats model.DashboardStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.CouponsCount, err = s.coupons.Count(gctx, shopID)
		return err
	})
	g.Go(func() error {
		live, err := s.issues.ListLive(gctx, shopID, now)
		stats.ActiveIssuesCount = int64(len(live))
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveSchedulesCount, err = s.schedules.CountActive(gctx, shopID)
		return err
	})
	g.Go(func() (err error) {
		stats.AcquisitionsToday, err = s.acquisitions.CountSince(gctx, shopID, midnight)
		return err
	})
	g.Go(func() (err error) {
		stats.UnreadNotifications, err = s.notifications.CountUnread(gctx, shopID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Activities merges recent acquisitions and issuances, newest first.
func (s *DashboardService) Activities(ctx context.Context, shopID primitive.ObjectID, limit int) ([]model.DashboardActivity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	var (
		notifications []*model.Notification
		issues        []*model.Issue
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		notifications, err = s.notifications.List(gctx, shopID, int64(limit))
		return err
	})
	g.Go(func() (err error) {
		issues, err = s.issues.ListRecent(gctx, shopID, int64(limit))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	activities := make([]model.DashboardActivity, 0, len(notifications)+len(issues))
	for _, n := range notifications {
		who := n.UserName
		if who == "" {
			who = n.UserID
		}
		activities = append(activities, model.DashboardActivity{
			Type:    "acquisition",
			Message: fmt.Sprintf("%s acquired %q", who, n.CouponIssue.Coupon.Title),
			Time:    n.AcquiredAt,
			Icon:    "ticket",
		})
	}
	for _, i := range issues {
		a := model.DashboardActivity{
			Type:    "issue",
			Message: fmt.Sprintf("%q issued for %d minutes", i.Coupon.Title, i.DurationMinutes),
			Time:    i.IssuedAt,
			Icon:    "send",
		}
		if i.IssueType == model.IssueTypeBatchGenerated {
			a.Type = "schedule"
			a.Message = fmt.Sprintf("%q issued by schedule", i.Coupon.Title)
			a.Icon = "calendar"
		}
		activities = append(activities, a)
	}

	slices.SortStableFunc(activities, func(a, b model.DashboardActivity) int { return b.Time.Compare(a.Time) })
	if len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}
