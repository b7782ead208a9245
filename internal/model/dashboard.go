package model

import "time"

// DashboardStats is the payload of GET /dashboard/stats
type DashboardStats struct {
	CouponsCount         int64 `json:"coupons_count"`
	ActiveIssuesCount    int64 `json:"active_issues_count"`
	ActiveSchedulesCount int64 `json:"active_schedules_count"`
	AcquisitionsToday    int64 `json:"acquisitions_today"`
	UnreadNotifications  int64 `json:"unread_notifications"`
}

// DashboardActivity is one entry of the recent activity feed.
type DashboardActivity struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	Icon    string    `json:"icon"`
}
