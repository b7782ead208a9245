package schedule

import (
	"strings"
	"time"
)

var shortWeekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// DayTypeDisplay renders a pattern the way the dashboard lists it.
func DayTypeDisplay(p DayPattern) string {
	switch p.Type {
	case Daily:
		return "Every day"
	case Weekdays:
		return "Weekdays (Mon-Fri)"
	case Weekends:
		return "Weekends (Sat, Sun)"
	case Custom:
		// Monday-first, the order the form presents the checkboxes in.
		names := make([]string, 0, len(p.Days))
		for _, wd := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
			if p.Matches(wd) {
				names = append(names, shortWeekdays[wd])
			}
		}
		return strings.Join(names, ", ")
	}
	return string(p.Type)
}

// TimeRangeDisplay renders "10:00 - 12:00".
func TimeRangeDisplay(start, end TimeOfDay) string {
	return start.String() + " - " + end.String()
}
