package schedule

import (
	"iter"
	"time"
)

// Window is one concrete occurrence of a schedule.
type Window struct {
	Date  Date
	Start time.Time
	End   time.Time
}

func (w Window) DurationMinutes() int {
	return int(w.End.Sub(w.Start) / time.Minute)
}

// Windows yields one window per date in [rangeStart, rangeEnd] that lies in
// the validity range and matches the day pattern. Both ends are inclusive.
// An inactive definition yields nothing. The sequence holds no state between
// iterations and can be ranged over any number of times.
func Windows(def Definition, rangeStart, rangeEnd Date, loc *time.Location) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		if !def.Active {
			return
		}
		if loc == nil {
			loc = time.UTC
		}

		from := rangeStart
		if def.ValidFrom.After(from) {
			from = def.ValidFrom
		}
		until := rangeEnd
		if def.ValidUntil != nil && def.ValidUntil.Before(until) {
			until = *def.ValidUntil
		}

		for d := from; !d.After(until); d = d.AddDays(1) {
			if !def.Pattern.Matches(d.Weekday()) {
				continue
			}
			w := Window{
				Date:  d,
				Start: d.At(def.Start, loc),
				End:   d.At(def.End, loc),
			}
			if !yield(w) {
				return
			}
		}
	}
}

// Collect drains a window sequence, stopping after limit windows when
// limit > 0.
func Collect(seq iter.Seq[Window], limit int) []Window {
	var out []Window
	for w := range seq {
		out = append(out, w)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
