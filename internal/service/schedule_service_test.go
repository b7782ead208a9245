package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"coupon-scheduler/internal/model"
	apperrors "coupon-scheduler/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func boolPtr(v bool) *bool { return &v }

func weekdayRequest(couponID primitive.ObjectID) *model.ScheduleRequest {
	return &model.ScheduleRequest{
		CouponID:        couponID.Hex(),
		Name:            "Lunch rush",
		DayType:         "weekdays",
		StartTime:       "11:30",
		EndTime:         "13:00",
		MaxAcquisitions: intPtr(50),
		ValidFrom:       "2024-06-03",
		ValidUntil:      "2024-06-30",
	}
}

func TestScheduleCreate(t *testing.T) {
	f := newFixture(t, t0)

	resp, err := f.schedules.Create(context.Background(), f.shopID, weekdayRequest(f.coupon.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.DayTypeDisplay != "Weekdays (Mon-Fri)" || resp.TimeRangeDisplay != "11:30 - 13:00" || resp.DurationMinutes != 90 {
		t.Errorf("display = %q %q %d", resp.DayTypeDisplay, resp.TimeRangeDisplay, resp.DurationMinutes)
	}
	if resp.Coupon.Title != "Free Coffee" || !resp.IsActive {
		t.Errorf("resp = %+v", resp)
	}
}

func TestScheduleCreate_FieldErrors(t *testing.T) {
	f := newFixture(t, t0)

	tests := []struct {
		name   string
		mutate func(r *model.ScheduleRequest)
		want   []string
	}{
		{"inverted window", func(r *model.ScheduleRequest) { r.EndTime = "11:00" }, []string{"time_window"}},
		{"bad start syntax", func(r *model.ScheduleRequest) { r.StartTime = "noon" }, []string{"start_time"}},
		{"custom without days", func(r *model.ScheduleRequest) { r.DayType = "custom" }, []string{"custom_days"}},
		{"until before from", func(r *model.ScheduleRequest) { r.ValidUntil = "2024-06-01" }, []string{"valid_until"}},
		{"bad from syntax", func(r *model.ScheduleRequest) { r.ValidFrom = "06/03/2024" }, []string{"valid_from"}},
		{"unknown coupon", func(r *model.ScheduleRequest) { r.CouponID = primitive.NewObjectID().Hex() }, []string{"coupon_id"}},
		{"everything", func(r *model.ScheduleRequest) {
			r.Name = " "
			r.EndTime = "11:30"
			r.MaxAcquisitions = intPtr(0)
			r.CouponID = ""
		}, []string{"coupon_id", "max_acquisitions", "schedule_name", "time_window"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := weekdayRequest(f.coupon.ID)
			tt.mutate(req)
			_, err := f.schedules.Create(context.Background(), f.shopID, req)
			fields, ok := apperrors.Fields(err)
			if !ok {
				t.Fatalf("err = %v, want validation error", err)
			}
			got := make(map[string]bool)
			for k := range fields {
				got[k] = true
			}
			want := make(map[string]bool)
			for _, k := range tt.want {
				want[k] = true
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("fields = %v, want %v", fields, tt.want)
			}
			if len(fields["time_window"]) > 1 {
				t.Errorf("time_window reported %d times", len(fields["time_window"]))
			}
		})
	}
}

func TestScheduleUpdate_DayPatternImmutable(t *testing.T) {
	f := newFixture(t, t0)
	created, err := f.schedules.Create(context.Background(), f.shopID, weekdayRequest(f.coupon.ID))
	if err != nil {
		t.Fatal(err)
	}

	req := weekdayRequest(f.coupon.ID)
	req.DayType = "daily"
	_, err = f.schedules.Update(context.Background(), f.shopID, created.ID, req)
	fields, ok := apperrors.Fields(err)
	if !ok || !fields.Has("day_type") {
		t.Fatalf("err = %v, want day_type error", err)
	}

	req = weekdayRequest(f.coupon.ID)
	req.StartTime = "12:00"
	req.MaxAcquisitions = nil
	updated, err := f.schedules.Update(context.Background(), f.shopID, created.ID, req)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.StartTime != "12:00" || updated.MaxAcquisitions != nil || updated.DurationMinutes != 60 {
		t.Errorf("updated = %+v", updated.Schedule)
	}
}

func TestScheduleToggleAndDelete(t *testing.T) {
	f := newFixture(t, t0)
	created, _ := f.schedules.Create(context.Background(), f.shopID, weekdayRequest(f.coupon.ID))

	var saved int
	f.schedules.OnSave(func(context.Context, *model.Schedule) { saved++ })

	toggled, err := f.schedules.ToggleStatus(context.Background(), f.shopID, created.ID)
	if err != nil || toggled.IsActive {
		t.Fatalf("toggle = %+v, %v", toggled, err)
	}
	if saved != 1 {
		t.Errorf("OnSave ran %d times", saved)
	}

	// Update without is_active keeps the toggled state
	updated, err := f.schedules.Update(context.Background(), f.shopID, created.ID, weekdayRequest(f.coupon.ID))
	if err != nil || updated.IsActive {
		t.Errorf("update reactivated schedule: %+v, %v", updated, err)
	}

	if err := f.schedules.Delete(context.Background(), f.shopID, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.schedules.Get(context.Background(), f.shopID, created.ID); !errors.Is(err, apperrors.ErrScheduleNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
}

func TestSchedulePreview(t *testing.T) {
	f := newFixture(t, t0)
	req := weekdayRequest(f.coupon.ID)
	req.IsActive = boolPtr(true)
	created, _ := f.schedules.Create(context.Background(), f.shopID, req)

	windows, err := f.schedules.Preview(context.Background(), f.shopID, created.ID, "2024-06-03", "2024-06-09")
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) != 5 {
		t.Fatalf("windows = %d, want 5", len(windows))
	}
	first := windows[0]
	want := time.Date(2024, time.June, 3, 11, 30, 0, 0, tokyo)
	if first.Date != "2024-06-03" || !first.StartDateTime.Equal(want) || first.DurationMinutes != 90 {
		t.Errorf("first = %+v", first)
	}

	// Defaults to two weeks starting today
	windows, err = f.schedules.Preview(context.Background(), f.shopID, created.ID, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) != 10 {
		t.Errorf("default preview = %d windows, want 10", len(windows))
	}

	_, err = f.schedules.Preview(context.Background(), f.shopID, created.ID, "2024-06-09", "2024-06-03")
	if fields, ok := apperrors.Fields(err); !ok || !fields.Has("to") {
		t.Errorf("reversed range err = %v", err)
	}
}

func TestDefinition_RoundTrip(t *testing.T) {
	f := newFixture(t, t0)
	req := weekdayRequest(f.coupon.ID)
	req.DayType = "custom"
	req.CustomDays = []int{3, 1, 3}
	created, err := f.schedules.Create(context.Background(), f.shopID, req)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(created.CustomDays, []int{1, 3}) {
		t.Errorf("CustomDays = %v, want normalized [1 3]", created.CustomDays)
	}

	def, err := Definition(&created.Schedule)
	if err != nil {
		t.Fatal(err)
	}
	if def.Start.String() != "11:30" || def.ValidUntil == nil || def.ValidUntil.String() != "2024-06-30" || *def.MaxAcquisitions != 50 {
		t.Errorf("def = %+v", def)
	}
}
