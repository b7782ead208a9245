package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var t0 = time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)

func newIssue(store *Store, max *int) *model.Issue {
	issue := &model.Issue{
		ShopID:          primitive.NewObjectID(),
		CouponID:        primitive.NewObjectID(),
		IssueType:       model.IssueTypeManual,
		StartDateTime:   t0,
		EndDateTime:     t0.Add(time.Hour),
		DurationMinutes: 60,
		MaxAcquisitions: max,
	}
	_ = store.Issues().Create(context.Background(), issue)
	return issue
}

func TestReserveSlot_StopsAtCap(t *testing.T) {
	store := NewStore()
	max := 3
	issue := newIssue(store, &max)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Issues().ReserveSlot(context.Background(), issue.ID, t0.Add(time.Minute)); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 3 {
		t.Errorf("reserved %d slots, want 3", ok.Load())
	}
	got, _ := store.Issues().GetByID(context.Background(), issue.ID)
	if got.CurrentAcquisitions != 3 {
		t.Errorf("CurrentAcquisitions = %d, want 3", got.CurrentAcquisitions)
	}
}

func TestReserveSlot_OutsideWindow(t *testing.T) {
	store := NewStore()
	issue := newIssue(store, nil)

	for _, now := range []time.Time{t0.Add(-time.Second), t0.Add(time.Hour)} {
		_, err := store.Issues().ReserveSlot(context.Background(), issue.ID, now)
		if !errors.Is(err, apperrors.ErrSlotUnavailable) {
			t.Errorf("at %v: err = %v, want ErrSlotUnavailable", now, err)
		}
	}
}

func TestIssueCreate_DuplicateSlot(t *testing.T) {
	store := NewStore()
	scheduleID := primitive.NewObjectID()
	first := &model.Issue{ScheduleID: &scheduleID, StartDateTime: t0, EndDateTime: t0.Add(time.Hour)}
	if err := store.Issues().Create(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	second := &model.Issue{ScheduleID: &scheduleID, StartDateTime: t0, EndDateTime: t0.Add(time.Hour)}
	if err := store.Issues().Create(context.Background(), second); !errors.Is(err, apperrors.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}

	got, err := store.Issues().GetBySlot(context.Background(), scheduleID, t0)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != first.ID {
		t.Errorf("GetBySlot returned %s, want %s", got.ID.Hex(), first.ID.Hex())
	}
}

func TestDeleteUnopened(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	issue := newIssue(store, nil)

	if ok, _ := store.Issues().DeleteUnopened(ctx, issue.ID, t0); ok {
		t.Fatal("deleted an issue that already opened")
	}

	if _, err := store.Issues().ReserveSlot(ctx, issue.ID, t0.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.Issues().DeleteUnopened(ctx, issue.ID, t0.Add(-time.Hour)); ok {
		t.Fatal("deleted an issue with acquisitions")
	}

	fresh := newIssue(store, nil)
	ok, err := store.Issues().DeleteUnopened(ctx, fresh.ID, t0.Add(-time.Minute))
	if err != nil || !ok {
		t.Fatalf("DeleteUnopened = %v, %v", ok, err)
	}
	if _, err := store.Issues().GetByID(ctx, fresh.ID); !errors.Is(err, apperrors.ErrIssueNotFound) {
		t.Errorf("GetByID after delete err = %v", err)
	}
}

func TestStop(t *testing.T) {
	store := NewStore()
	issue := newIssue(store, nil)

	stopAt := t0.Add(25 * time.Minute)
	got, err := store.Issues().Stop(context.Background(), issue.ID, "op-1", stopAt)
	if err != nil {
		t.Fatal(err)
	}
	if !got.EndDateTime.Equal(stopAt) || got.StoppedAt == nil || got.DurationMinutes != 25 {
		t.Errorf("stopped issue = %+v", got)
	}

	again, err := store.Issues().Stop(context.Background(), issue.ID, "op-2", stopAt.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if again.StoppedBy != "op-1" || !again.EndDateTime.Equal(stopAt) {
		t.Errorf("second stop changed the issue: %+v", again)
	}
}

func TestStop_BeforeStartClampsDuration(t *testing.T) {
	store := NewStore()
	issue := newIssue(store, nil)

	got, err := store.Issues().Stop(context.Background(), issue.ID, "op", t0.Add(-10*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if got.DurationMinutes != 0 {
		t.Errorf("DurationMinutes = %d, want 0", got.DurationMinutes)
	}
}

func TestAcquisitionCreate_OneActivePerUser(t *testing.T) {
	store := NewStore()
	issueID := primitive.NewObjectID()
	repo := store.Acquisitions()

	a := &model.Acquisition{CouponIssueID: issueID, UserID: "u1", Status: model.AcquisitionActive}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	b := &model.Acquisition{CouponIssueID: issueID, UserID: "u1", Status: model.AcquisitionActive}
	if err := repo.Create(context.Background(), b); !errors.Is(err, apperrors.ErrAlreadyAcquired) {
		t.Fatalf("err = %v, want ErrAlreadyAcquired", err)
	}

	used := &model.Acquisition{CouponIssueID: issueID, UserID: "u1", Status: model.AcquisitionUsed}
	if err := repo.Create(context.Background(), used); err != nil {
		t.Errorf("non-active duplicate rejected: %v", err)
	}

	found, err := repo.FindActive(context.Background(), issueID, "u1")
	if err != nil || found == nil || found.ID != a.ID {
		t.Errorf("FindActive = %v, %v", found, err)
	}
	none, err := repo.FindActive(context.Background(), issueID, "u2")
	if err != nil || none != nil {
		t.Errorf("FindActive(u2) = %v, %v", none, err)
	}
}

func TestWithTransaction_SerializesPerKey(t *testing.T) {
	store := NewStore()
	var inside, peak atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithTransaction(context.Background(), "issue:x", func(ctx context.Context) error {
				n := inside.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestWithTransaction_ContextCancelled(t *testing.T) {
	store := NewStore()
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = store.WithTransaction(context.Background(), "k", func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := store.WithTransaction(ctx, "k", func(ctx context.Context) error { return nil })
	close(release)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestNotifications_BannerAndRead(t *testing.T) {
	store := NewStore()
	repo := store.Notifications()
	shopID := primitive.NewObjectID()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = repo.Create(ctx, &model.Notification{ShopID: shopID, CreatedAt: t0.Add(time.Duration(i) * time.Minute)})
	}
	banner, _ := repo.ListForBanner(ctx, shopID)
	if len(banner) != 3 {
		t.Fatalf("banner = %d, want 3", len(banner))
	}
	if !banner[0].CreatedAt.After(banner[2].CreatedAt) {
		t.Error("banner not newest first")
	}

	_ = repo.MarkBannerShown(ctx, shopID, banner[0].ID, t0)
	banner, _ = repo.ListForBanner(ctx, shopID)
	if len(banner) != 2 {
		t.Errorf("banner after shown = %d, want 2", len(banner))
	}

	n, _ := repo.MarkAllRead(ctx, shopID, t0)
	if n != 3 {
		t.Errorf("MarkAllRead = %d, want 3", n)
	}
	unread, _ := repo.CountUnread(ctx, shopID)
	if unread != 0 {
		t.Errorf("unread = %d", unread)
	}

	if err := repo.MarkRead(ctx, primitive.NewObjectID(), banner[0].ID, t0); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("cross-shop MarkRead err = %v", err)
	}
}
