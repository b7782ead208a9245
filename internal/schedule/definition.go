// Package schedule turns recurring coupon schedules into concrete issuance
// windows. Everything here is pure: no storage, no clock reads.
package schedule

import (
	"sort"
	"strings"
	"time"

	apperrors "coupon-scheduler/pkg/errors"
)

// DayType selects which calendar days a schedule fires on.
type DayType string

const (
	Daily    DayType = "daily"
	Weekdays DayType = "weekdays"
	Weekends DayType = "weekends"
	Custom   DayType = "custom"
)

// Field keys reported by Validate. They match the JSON attribute names of
// the schedule form so messages can be routed per input.
const (
	FieldCouponID        = "coupon_id"
	FieldName            = "schedule_name"
	FieldDayType         = "day_type"
	FieldCustomDays      = "custom_days"
	FieldStartTime       = "start_time"
	FieldEndTime         = "end_time"
	FieldTimeWindow      = "time_window"
	FieldValidFrom       = "valid_from"
	FieldValidUntil      = "valid_until"
	FieldMaxAcquisitions = "max_acquisitions"
)

// DayPattern is the recurrence rule. Days uses 0=Sunday .. 6=Saturday and
// is only consulted for Custom.
type DayPattern struct {
	Type DayType
	Days []int
}

// Matches reports whether a date falling on wd satisfies the pattern.
func (p DayPattern) Matches(wd time.Weekday) bool {
	switch p.Type {
	case Daily:
		return true
	case Weekdays:
		return wd >= time.Monday && wd <= time.Friday
	case Weekends:
		return wd == time.Saturday || wd == time.Sunday
	case Custom:
		for _, d := range p.Days {
			if d == int(wd) {
				return true
			}
		}
	}
	return false
}

// Equal compares patterns ignoring the order and duplicates of Days.
func (p DayPattern) Equal(o DayPattern) bool {
	if p.Type != o.Type {
		return false
	}
	if p.Type != Custom {
		return true
	}
	a, b := normalizeDays(p.Days), normalizeDays(o.Days)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func normalizeDays(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

// Definition is the engine view of a recurring schedule.
type Definition struct {
	ID              string
	CouponID        string
	Name            string
	Pattern         DayPattern
	Start           TimeOfDay
	End             TimeOfDay
	ValidFrom       Date
	ValidUntil      *Date
	MaxAcquisitions *int
	Active          bool
}

// DurationMinutes is the length of each generated window.
func (d Definition) DurationMinutes() int {
	return int(d.End - d.Start)
}

// Validate checks every rule and reports all violations at once. On success
// the definition is returned with its custom days normalized.
func Validate(def Definition) (Definition, error) {
	fe := apperrors.FieldErrors{}

	if strings.TrimSpace(def.Name) == "" {
		fe.Add(FieldName, "schedule name is required")
	}

	switch def.Pattern.Type {
	case Daily, Weekdays, Weekends:
	case Custom:
		if len(def.Pattern.Days) == 0 {
			fe.Add(FieldCustomDays, "select at least one day of the week")
		}
		for _, d := range def.Pattern.Days {
			if d < 0 || d > 6 {
				fe.Add(FieldCustomDays, "days must be between 0 (Sunday) and 6 (Saturday)")
				break
			}
		}
	default:
		fe.Add(FieldDayType, "day type must be one of daily, weekdays, weekends, custom")
	}

	if def.Start >= def.End {
		fe.Add(FieldTimeWindow, "end time must be later than start time")
	}

	if def.ValidFrom.IsZero() {
		fe.Add(FieldValidFrom, "valid from date is required")
	}

	if def.ValidUntil != nil && !def.ValidFrom.IsZero() && def.ValidUntil.Before(def.ValidFrom) {
		fe.Add(FieldValidUntil, "valid until must be on or after valid from")
	}

	if def.MaxAcquisitions != nil && *def.MaxAcquisitions < 1 {
		fe.Add(FieldMaxAcquisitions, "max acquisitions must be at least 1")
	}

	if err := fe.Err(); err != nil {
		return Definition{}, err
	}

	if def.Pattern.Type == Custom {
		def.Pattern.Days = normalizeDays(def.Pattern.Days)
	} else {
		def.Pattern.Days = nil
	}
	return def, nil
}
