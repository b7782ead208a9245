package status

import (
	"encoding/json"
	"testing"
	"time"

	"coupon-scheduler/internal/model"
)

var t0 = time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)

func capped(n int) *int { return &n }

func issueAt(start time.Time, minutes int, max *int, current int) *model.Issue {
	return &model.Issue{
		StartDateTime:       start,
		EndDateTime:         start.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes:     minutes,
		MaxAcquisitions:     max,
		CurrentAcquisitions: current,
	}
}

func TestProject_StatusPrecedence(t *testing.T) {
	stopped := t0.Add(10 * time.Minute)

	tests := []struct {
		name  string
		issue *model.Issue
		now   time.Time
		want  Status
		avail bool
	}{
		{"active unlimited", issueAt(t0, 60, nil, 5), t0.Add(time.Minute), Active, true},
		{"active with room", issueAt(t0, 60, capped(3), 2), t0.Add(time.Minute), Active, true},
		{"full beats expired", issueAt(t0, 60, capped(3), 3), t0.Add(2 * time.Hour), Full, false},
		{"expired at end instant", issueAt(t0, 60, capped(3), 0), t0.Add(60 * time.Minute), Expired, false},
		{"scheduled before start", issueAt(t0, 60, nil, 0), t0.Add(-time.Minute), Scheduled, false},
		{"cancelled beats full", func() *model.Issue {
			i := issueAt(t0, 60, capped(1), 1)
			i.StoppedAt = &stopped
			i.EndDateTime = stopped
			return i
		}(), t0.Add(20 * time.Minute), Cancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tt.issue, tt.now)
			if got.Status != tt.want {
				t.Errorf("Status = %s, want %s", got.Status, tt.want)
			}
			if got.IsAvailable != tt.avail {
				t.Errorf("IsAvailable = %v, want %v", got.IsAvailable, tt.avail)
			}
		})
	}
}

func TestProject_ExpiredRegardlessOfAcquisitions(t *testing.T) {
	for _, current := range []int{0, 1, 99} {
		got := Project(issueAt(t0, 30, nil, current), t0.Add(31*time.Minute))
		if got.Status != Expired {
			t.Errorf("current=%d: Status = %s, want expired", current, got.Status)
		}
	}
}

func TestProject_RemainingAndTime(t *testing.T) {
	got := Project(issueAt(t0, 60, capped(3), 5), t0.Add(90*time.Second))
	if got.RemainingCount.Unlimited || got.RemainingCount.Count != 0 {
		t.Errorf("RemainingCount = %+v, want floored 0", got.RemainingCount)
	}
	// 58.5 minutes left floors to 58
	if got.TimeRemaining != 58 {
		t.Errorf("TimeRemaining = %d, want 58", got.TimeRemaining)
	}

	after := Project(issueAt(t0, 60, nil, 0), t0.Add(3*time.Hour))
	if after.TimeRemaining != 0 {
		t.Errorf("TimeRemaining after end = %d, want 0", after.TimeRemaining)
	}
}

func TestProject_ManualSixtyMinuteUnlimited(t *testing.T) {
	issue := issueAt(t0, 60, nil, 0)
	if !issue.EndDateTime.Equal(t0.Add(60 * time.Minute)) {
		t.Fatalf("end = %v", issue.EndDateTime)
	}

	for _, m := range []int{0, 30, 59} {
		p := Project(issue, t0.Add(time.Duration(m)*time.Minute))
		if !p.IsAvailable {
			t.Errorf("minute %d: IsAvailable = false", m)
		}
		if p.RemainingCount.String() != "unlimited" {
			t.Errorf("minute %d: remaining = %s", m, p.RemainingCount)
		}
	}
	if Project(issue, t0.Add(60*time.Minute)).IsAvailable {
		t.Error("available at end instant")
	}
}

func TestRemaining_JSON(t *testing.T) {
	b, err := json.Marshal(Projection{Status: Active, RemainingCount: Remaining{Unlimited: true}})
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		RemainingCount Remaining `json:"remaining_count"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.RemainingCount.Unlimited {
		t.Errorf("decoded %s as %+v", b, decoded.RemainingCount)
	}

	b, _ = json.Marshal(Remaining{Count: 4})
	if string(b) != "4" {
		t.Errorf("Marshal = %s, want 4", b)
	}
}

func TestFormatRemaining(t *testing.T) {
	if got := FormatRemaining(45); got != "45m" {
		t.Errorf("got %q", got)
	}
	if got := FormatRemaining(125); got != "2h 05m" {
		t.Errorf("got %q", got)
	}
}
