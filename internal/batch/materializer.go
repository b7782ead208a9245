package batch

import (
	"context"
	"fmt"
	"log"
	"time"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository"
	"coupon-scheduler/internal/schedule"
	"coupon-scheduler/internal/service"

	"github.com/robfig/cron/v3"
)

// runTimeout bounds one scheduled pass over every active schedule.
const runTimeout = 4 * time.Minute

// Issuer creates the issue for one schedule window, idempotently, and
// withdraws unopened issues the schedule no longer produces.
type Issuer interface {
	Materialize(ctx context.Context, sched *model.Schedule, coupon *model.Coupon, w schedule.Window) (*model.Issue, bool, error)
	Reconcile(ctx context.Context, sched *model.Schedule, windows []schedule.Window, from, horizon time.Time) ([]schedule.Window, []*model.Issue, error)
}

// Result summarizes one materialization pass.
type Result struct {
	Schedules int
	Created   int
	Existing  int
	Skipped   int
	Withdrawn int
	Failed    int
}

func (r *Result) add(o Result) {
	r.Schedules += o.Schedules
	r.Created += o.Created
	r.Existing += o.Existing
	r.Skipped += o.Skipped
	r.Withdrawn += o.Withdrawn
	r.Failed += o.Failed
}

// Materializer turns active schedules into concrete issues for today and the
// next lookahead days.
type Materializer struct {
	schedules repository.ScheduleRepository
	coupons   repository.CouponRepository
	issuer    Issuer
	loc       *time.Location
	lookahead int
	now       func() time.Time
	cron      *cron.Cron
}

func NewMaterializer(
	schedules repository.ScheduleRepository,
	coupons repository.CouponRepository,
	issuer Issuer,
	loc *time.Location,
	lookaheadDays int,
) *Materializer {
	if lookaheadDays < 0 {
		lookaheadDays = 0
	}
	return &Materializer{
		schedules: schedules,
		coupons:   coupons,
		issuer:    issuer,
		loc:       loc,
		lookahead: lookaheadDays,
		now:       time.Now,
	}
}

// RunOnce materializes every active schedule. A failing schedule is logged
// and counted; it does not stop the others.
func (m *Materializer) RunOnce(ctx context.Context) (Result, error) {
	active, err := m.schedules.ListActive(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list active schedules: %w", err)
	}

	var total Result
	for _, sched := range active {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		res, err := m.RunSchedule(ctx, sched)
		total.add(res)
		if err != nil {
			total.Failed++
			log.Printf("[BATCH] Schedule %s failed: %v", sched.ID.Hex(), err)
		}
	}
	return total, nil
}

// RunSchedule materializes the remaining windows of one schedule from today
// through the lookahead horizon. Windows that already ended are skipped.
// Unopened issues left over from an earlier time window or cap are
// withdrawn first. A window that overlaps an issue already opened for it is
// not materialized again.
func (m *Materializer) RunSchedule(ctx context.Context, sched *model.Schedule) (Result, error) {
	res := Result{Schedules: 1}
	if !sched.IsActive {
		return res, nil
	}

	coupon, err := m.coupons.GetByID(ctx, sched.ShopID, sched.CouponID)
	if err != nil {
		return res, fmt.Errorf("coupon %s: %w", sched.CouponID.Hex(), err)
	}
	if !coupon.IsActive {
		res.Skipped++
		return res, nil
	}

	def, err := service.Definition(sched)
	if err != nil {
		return res, err
	}

	now := m.now()
	today := schedule.DateIn(now, m.loc)
	through := today.AddDays(m.lookahead)
	var windows []schedule.Window
	for w := range schedule.Windows(def, today, through, m.loc) {
		if !w.End.After(now) {
			res.Skipped++
			continue
		}
		windows = append(windows, w)
	}

	pending, withdrawn, err := m.issuer.Reconcile(ctx, sched, windows, today.At(0, m.loc), through.AddDays(1).At(0, m.loc))
	if err != nil {
		return res, fmt.Errorf("reconcile issues: %w", err)
	}
	res.Skipped += len(windows) - len(pending)
	for _, issue := range withdrawn {
		res.Withdrawn++
		log.Printf("[BATCH] Withdrew %q %s - %s, superseded by schedule %s", coupon.Title,
			issue.StartDateTime.In(m.loc).Format(time.DateTime), issue.EndDateTime.In(m.loc).Format("15:04"), sched.ID.Hex())
	}

	for _, w := range pending {
		_, created, err := m.issuer.Materialize(ctx, sched, coupon, w)
		if err != nil {
			return res, fmt.Errorf("window %s: %w", w.Date, err)
		}
		if created {
			res.Created++
			log.Printf("[BATCH] Issued %q for %s %s", coupon.Title, w.Date, schedule.TimeRangeDisplay(def.Start, def.End))
		} else {
			res.Existing++
		}
	}

	if err := m.schedules.SetLastProcessed(ctx, sched.ID, through.String()); err != nil {
		return res, fmt.Errorf("record last processed: %w", err)
	}
	return res, nil
}

// Start runs RunOnce on the cron spec in the shop's time zone. Overlapping
// runs are skipped.
func (m *Materializer) Start(spec string) error {
	c := cron.New(
		cron.WithLocation(m.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		res, err := m.RunOnce(ctx)
		if err != nil {
			log.Printf("[BATCH] Run failed: %v", err)
			return
		}
		log.Printf("[BATCH] Processed %d schedules: %d created, %d existing, %d skipped, %d withdrawn, %d failed",
			res.Schedules, res.Created, res.Existing, res.Skipped, res.Withdrawn, res.Failed)
	})
	if err != nil {
		return fmt.Errorf("add batch cron %q: %w", spec, err)
	}
	m.cron = c
	c.Start()
	log.Printf("[BATCH] Started schedule=%q lookahead=%dd tz=%s", spec, m.lookahead, m.loc)
	return nil
}

// Stop halts the cron and waits for a running pass to finish or ctx to
// expire.
func (m *Materializer) Stop(ctx context.Context) error {
	if m.cron == nil {
		return nil
	}
	select {
	case <-m.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
