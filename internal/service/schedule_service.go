package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository"
	"coupon-scheduler/internal/schedule"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultPreviewDays = 14
	maxPreviewDays     = 366
)

// ScheduleService manages recurring schedules. Saving a schedule never
// touches issues it already produced.
type ScheduleService struct {
	scheduleRepo repository.ScheduleRepository
	couponRepo   repository.CouponRepository
	loc          *time.Location
	now          func() time.Time
	onSave       func(ctx context.Context, s *model.Schedule)
}

// NewScheduleService creates a schedule service evaluating dates in loc
func NewScheduleService(scheduleRepo repository.ScheduleRepository, couponRepo repository.CouponRepository, loc *time.Location) *ScheduleService {
	return &ScheduleService{
		scheduleRepo: scheduleRepo,
		couponRepo:   couponRepo,
		loc:          loc,
		now:          time.Now,
	}
}

// OnSave registers a hook run after a schedule is created, updated or
// toggled. The server uses it to materialize today's window right away.
func (s *ScheduleService) OnSave(fn func(ctx context.Context, sched *model.Schedule)) {
	s.onSave = fn
}

// Definition converts a stored schedule into its engine view.
func Definition(sched *model.Schedule) (schedule.Definition, error) {
	start, err := schedule.ParseTimeOfDay(sched.StartTime)
	if err != nil {
		return schedule.Definition{}, fmt.Errorf("schedule %s start_time: %w", sched.ID.Hex(), err)
	}
	end, err := schedule.ParseTimeOfDay(sched.EndTime)
	if err != nil {
		return schedule.Definition{}, fmt.Errorf("schedule %s end_time: %w", sched.ID.Hex(), err)
	}
	from, err := schedule.ParseDate(sched.ValidFrom)
	if err != nil {
		return schedule.Definition{}, fmt.Errorf("schedule %s valid_from: %w", sched.ID.Hex(), err)
	}

	def := schedule.Definition{
		ID:              sched.ID.Hex(),
		CouponID:        sched.CouponID.Hex(),
		Name:            sched.Name,
		Pattern:         schedule.DayPattern{Type: schedule.DayType(sched.DayType), Days: sched.CustomDays},
		Start:           start,
		End:             end,
		ValidFrom:       from,
		MaxAcquisitions: sched.MaxAcquisitions,
		Active:          sched.IsActive,
	}
	if sched.ValidUntil != "" {
		until, err := schedule.ParseDate(sched.ValidUntil)
		if err != nil {
			return schedule.Definition{}, fmt.Errorf("schedule %s valid_until: %w", sched.ID.Hex(), err)
		}
		def.ValidUntil = &until
	}
	return def, nil
}

// ParseRequest runs the same checks as Create, minus the coupon lookup, and
// returns the definition the request describes.
func ParseRequest(req *model.ScheduleRequest) (schedule.Definition, error) {
	def, fe := definitionFromRequest(req)
	if err := fe.Err(); err != nil {
		return schedule.Definition{}, err
	}
	return def, nil
}

// definitionFromRequest parses the request and runs the schedule rules,
// collecting syntax and rule violations into one set of field errors.
// Rules that depend on a field that failed to parse are not reported again.
func definitionFromRequest(req *model.ScheduleRequest) (schedule.Definition, apperrors.FieldErrors) {
	fe := apperrors.FieldErrors{}
	def := schedule.Definition{
		Name:            req.Name,
		Pattern:         schedule.DayPattern{Type: schedule.DayType(req.DayType), Days: req.CustomDays},
		MaxAcquisitions: req.MaxAcquisitions,
		Active:          req.IsActive == nil || *req.IsActive,
	}

	var err error
	if def.Start, err = schedule.ParseTimeOfDay(req.StartTime); err != nil {
		fe.Add(schedule.FieldStartTime, "start time must be HH:MM")
	}
	if def.End, err = schedule.ParseTimeOfDay(req.EndTime); err != nil {
		fe.Add(schedule.FieldEndTime, "end time must be HH:MM")
	}
	if req.ValidFrom != "" {
		if def.ValidFrom, err = schedule.ParseDate(req.ValidFrom); err != nil {
			fe.Add(schedule.FieldValidFrom, "valid from must be a YYYY-MM-DD date")
		}
	}
	if req.ValidUntil != "" {
		until, err := schedule.ParseDate(req.ValidUntil)
		if err != nil {
			fe.Add(schedule.FieldValidUntil, "valid until must be a YYYY-MM-DD date")
		} else {
			def.ValidUntil = &until
		}
	}

	validated, err := schedule.Validate(def)
	if err == nil {
		return validated, fe
	}
	rules, _ := apperrors.Fields(err)
	timesBroken := fe.Has(schedule.FieldStartTime) || fe.Has(schedule.FieldEndTime)
	for field, msgs := range rules {
		switch {
		case fe.Has(field):
		case field == schedule.FieldTimeWindow && timesBroken:
		case field == schedule.FieldValidUntil && fe.Has(schedule.FieldValidFrom):
		default:
			fe[field] = append(fe[field], msgs...)
		}
	}
	return def, fe
}

// Create validates and stores a new schedule
func (s *ScheduleService) Create(ctx context.Context, shopID primitive.ObjectID, req *model.ScheduleRequest) (*model.ScheduleResponse, error) {
	def, fe := definitionFromRequest(req)

	var coupon *model.Coupon
	couponID, err := primitive.ObjectIDFromHex(req.CouponID)
	if err != nil {
		fe.Add(schedule.FieldCouponID, "select a coupon")
	} else if coupon, err = s.couponRepo.GetByID(ctx, shopID, couponID); err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		fe.Add(schedule.FieldCouponID, "coupon not found")
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	sched := &model.Schedule{
		ShopID:    shopID,
		CouponID:  couponID,
		CreatedAt: now,
	}
	apply(sched, def, now)

	if err := s.scheduleRepo.Create(ctx, sched); err != nil {
		return nil, err
	}
	s.saved(ctx, sched)
	return s.respond(sched, coupon), nil
}

// Update replaces the mutable fields. The day pattern and coupon are fixed
// at creation.
func (s *ScheduleService) Update(ctx context.Context, shopID, id primitive.ObjectID, req *model.ScheduleRequest) (*model.ScheduleResponse, error) {
	sched, err := s.scheduleRepo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}

	def, fe := definitionFromRequest(req)
	current := schedule.DayPattern{Type: schedule.DayType(sched.DayType), Days: sched.CustomDays}
	if !fe.Has(schedule.FieldDayType) && !fe.Has(schedule.FieldCustomDays) && !current.Equal(def.Pattern) {
		fe.Add(schedule.FieldDayType, "the day pattern of an existing schedule cannot be changed")
	}
	if req.CouponID != "" && req.CouponID != sched.CouponID.Hex() {
		fe.Add(schedule.FieldCouponID, "the coupon of an existing schedule cannot be changed")
	}
	if req.IsActive == nil {
		def.Active = sched.IsActive
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	apply(sched, def, s.now())
	if err := s.scheduleRepo.Update(ctx, sched); err != nil {
		return nil, err
	}
	s.saved(ctx, sched)
	return s.withCoupon(ctx, sched)
}

// Delete removes a schedule. Issues it produced are kept.
func (s *ScheduleService) Delete(ctx context.Context, shopID, id primitive.ObjectID) error {
	return s.scheduleRepo.Delete(ctx, shopID, id)
}

// ToggleStatus flips is_active
func (s *ScheduleService) ToggleStatus(ctx context.Context, shopID, id primitive.ObjectID) (*model.ScheduleResponse, error) {
	sched, err := s.scheduleRepo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	sched.IsActive = !sched.IsActive
	sched.UpdatedAt = s.now()
	if err := s.scheduleRepo.Update(ctx, sched); err != nil {
		return nil, err
	}
	s.saved(ctx, sched)
	return s.withCoupon(ctx, sched)
}

// Get returns one schedule with its display fields
func (s *ScheduleService) Get(ctx context.Context, shopID, id primitive.ObjectID) (*model.ScheduleResponse, error) {
	sched, err := s.scheduleRepo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	return s.withCoupon(ctx, sched)
}

// List returns every schedule of the shop with its display fields
func (s *ScheduleService) List(ctx context.Context, shopID primitive.ObjectID) ([]*model.ScheduleResponse, error) {
	schedules, err := s.scheduleRepo.List(ctx, shopID)
	if err != nil {
		return nil, err
	}
	coupons, err := s.couponRepo.List(ctx, shopID)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*model.Coupon, len(coupons))
	for _, c := range coupons {
		byID[c.ID] = c
	}

	out := make([]*model.ScheduleResponse, 0, len(schedules))
	for _, sched := range schedules {
		out = append(out, s.respond(sched, byID[sched.CouponID]))
	}
	return out, nil
}

// Preview lists the windows the schedule would produce between from and to
// (YYYY-MM-DD, inclusive). Empty from means today; empty to means two weeks
// after from.
func (s *ScheduleService) Preview(ctx context.Context, shopID, id primitive.ObjectID, from, to string) ([]model.WindowPreview, error) {
	sched, err := s.scheduleRepo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}

	fe := apperrors.FieldErrors{}
	start := schedule.DateIn(s.now(), s.loc)
	if from != "" {
		if start, err = schedule.ParseDate(from); err != nil {
			fe.Add("from", "from must be a YYYY-MM-DD date")
		}
	}
	end := start.AddDays(defaultPreviewDays - 1)
	if to != "" {
		if end, err = schedule.ParseDate(to); err != nil {
			fe.Add("to", "to must be a YYYY-MM-DD date")
		}
	}
	if !fe.Has("from") && !fe.Has("to") {
		if end.Before(start) {
			fe.Add("to", "to must be on or after from")
		} else if end.After(start.AddDays(maxPreviewDays - 1)) {
			fe.Add("to", fmt.Sprintf("preview range is limited to %d days", maxPreviewDays))
		}
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	def, err := Definition(sched)
	if err != nil {
		return nil, err
	}

	out := []model.WindowPreview{}
	for w := range schedule.Windows(def, start, end, s.loc) {
		out = append(out, model.WindowPreview{
			Date:            w.Date.String(),
			StartDateTime:   w.Start,
			EndDateTime:     w.End,
			DurationMinutes: w.DurationMinutes(),
		})
	}
	return out, nil
}

func (s *ScheduleService) saved(ctx context.Context, sched *model.Schedule) {
	if s.onSave != nil {
		s.onSave(ctx, sched)
	}
}

func (s *ScheduleService) withCoupon(ctx context.Context, sched *model.Schedule) (*model.ScheduleResponse, error) {
	coupon, err := s.couponRepo.GetByID(ctx, sched.ShopID, sched.CouponID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if err != nil {
		log.Printf("[SCHEDULE] Coupon %s of schedule %s is gone", sched.CouponID.Hex(), sched.ID.Hex())
	}
	return s.respond(sched, coupon), nil
}

func (s *ScheduleService) respond(sched *model.Schedule, coupon *model.Coupon) *model.ScheduleResponse {
	resp := &model.ScheduleResponse{Schedule: *sched}
	pattern := schedule.DayPattern{Type: schedule.DayType(sched.DayType), Days: sched.CustomDays}
	resp.DayTypeDisplay = schedule.DayTypeDisplay(pattern)

	start, serr := schedule.ParseTimeOfDay(sched.StartTime)
	end, eerr := schedule.ParseTimeOfDay(sched.EndTime)
	if serr == nil && eerr == nil {
		resp.TimeRangeDisplay = schedule.TimeRangeDisplay(start, end)
		resp.DurationMinutes = int(end - start)
	}
	if coupon != nil {
		resp.Coupon = coupon.Ref()
	}
	return resp
}

func apply(sched *model.Schedule, def schedule.Definition, now time.Time) {
	sched.Name = def.Name
	sched.DayType = string(def.Pattern.Type)
	sched.CustomDays = def.Pattern.Days
	sched.StartTime = def.Start.String()
	sched.EndTime = def.End.String()
	sched.MaxAcquisitions = def.MaxAcquisitions
	sched.ValidFrom = def.ValidFrom.String()
	sched.ValidUntil = ""
	if def.ValidUntil != nil {
		sched.ValidUntil = def.ValidUntil.String()
	}
	sched.IsActive = def.Active
	sched.UpdatedAt = now
}
