// Package status derives the display state of a coupon issue at a given
// instant. Nothing here is stored; every caller projects with its own now.
package status

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"coupon-scheduler/internal/model"
)

type Status string

const (
	Active    Status = "active"
	Full      Status = "full"
	Expired   Status = "expired"
	Cancelled Status = "cancelled"
	Scheduled Status = "scheduled"
)

// Remaining is the number of acquisitions left, or unlimited. It encodes
// as a JSON number or the string "unlimited".
type Remaining struct {
	Count     int
	Unlimited bool
}

const unlimitedLiteral = "unlimited"

func (r Remaining) MarshalJSON() ([]byte, error) {
	if r.Unlimited {
		return json.Marshal(unlimitedLiteral)
	}
	return json.Marshal(r.Count)
}

func (r *Remaining) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte(`"`+unlimitedLiteral+`"`)) || bytes.Equal(data, []byte("null")) {
		*r = Remaining{Unlimited: true}
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("remaining_count: %w", err)
	}
	*r = Remaining{Count: n}
	return nil
}

// Exhausted reports a capped issue with nothing left.
func (r Remaining) Exhausted() bool {
	return !r.Unlimited && r.Count == 0
}

func (r Remaining) String() string {
	if r.Unlimited {
		return unlimitedLiteral
	}
	return strconv.Itoa(r.Count)
}

// Projection is the derived view of an issue.
type Projection struct {
	Status         Status    `json:"status"`
	RemainingCount Remaining `json:"remaining_count"`
	TimeRemaining  int       `json:"time_remaining"` // whole minutes, floored
	IsAvailable    bool      `json:"is_available"`
}

// Project applies the status precedence cancelled > full > expired >
// scheduled > active.
func Project(issue *model.Issue, now time.Time) Projection {
	p := Projection{
		RemainingCount: remaining(issue),
		TimeRemaining:  minutesUntil(issue.EndDateTime, now),
	}

	switch {
	case issue.StoppedAt != nil:
		p.Status = Cancelled
	case issue.IsFull():
		p.Status = Full
	case !now.Before(issue.EndDateTime):
		p.Status = Expired
	case now.Before(issue.StartDateTime):
		p.Status = Scheduled
	default:
		p.Status = Active
	}

	p.IsAvailable = p.Status == Active && !p.RemainingCount.Exhausted()
	return p
}

func remaining(issue *model.Issue) Remaining {
	if issue.MaxAcquisitions == nil {
		return Remaining{Unlimited: true}
	}
	left := *issue.MaxAcquisitions - issue.CurrentAcquisitions
	if left < 0 {
		left = 0
	}
	return Remaining{Count: left}
}

func minutesUntil(end, now time.Time) int {
	d := end.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// FormatRemaining renders minutes as "1h 05m" or "45m".
func FormatRemaining(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

// IssueView is an issue together with its projection, the shape the
// active-issue list is served in.
type IssueView struct {
	model.Issue
	Projection
}

// View projects issue at now.
func View(issue *model.Issue, now time.Time) IssueView {
	v := IssueView{Issue: *issue, Projection: Project(issue, now)}
	v.DurationMinutes = int(issue.EndDateTime.Sub(issue.StartDateTime) / time.Minute)
	if v.DurationMinutes < 0 {
		v.DurationMinutes = 0
	}
	return v
}
