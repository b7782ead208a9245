package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Schedule is a persisted recurring issuance rule. Dates are stored as
// YYYY-MM-DD strings and times as HH:MM, both in the shop's time zone.
type Schedule struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ShopID                 primitive.ObjectID `bson:"shop_id" json:"shop_id"`
	CouponID               primitive.ObjectID `bson:"coupon_id" json:"coupon_id"`
	Name                   string             `bson:"schedule_name" json:"schedule_name"`
	DayType                string             `bson:"day_type" json:"day_type"`
	CustomDays             []int              `bson:"custom_days,omitempty" json:"custom_days,omitempty"`
	StartTime              string             `bson:"start_time" json:"start_time"`
	EndTime                string             `bson:"end_time" json:"end_time"`
	MaxAcquisitions        *int               `bson:"max_acquisitions,omitempty" json:"max_acquisitions,omitempty"`
	ValidFrom              string             `bson:"valid_from" json:"valid_from"`
	ValidUntil             string             `bson:"valid_until,omitempty" json:"valid_until,omitempty"`
	IsActive               bool               `bson:"is_active" json:"is_active"`
	LastBatchProcessedDate string             `bson:"last_batch_processed_date,omitempty" json:"last_batch_processed_date,omitempty"`
	CreatedAt              time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt              time.Time          `bson:"updated_at" json:"updated_at"`
}

// ScheduleRequest is the body of POST /coupons/schedules and
// PUT /coupons/schedules/:id. All fields are parsed and validated together
// by the schedule service.
type ScheduleRequest struct {
	CouponID        string `json:"coupon_id"`
	Name            string `json:"schedule_name"`
	DayType         string `json:"day_type"`
	CustomDays      []int  `json:"custom_days"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	MaxAcquisitions *int   `json:"max_acquisitions"`
	ValidFrom       string `json:"valid_from"`
	ValidUntil      string `json:"valid_until"`
	IsActive        *bool  `json:"is_active"`
}

// ScheduleResponse adds the derived display fields and the coupon relation.
type ScheduleResponse struct {
	Schedule
	DayTypeDisplay   string    `json:"day_type_display"`
	TimeRangeDisplay string    `json:"time_range_display"`
	DurationMinutes  int       `json:"duration_minutes"`
	Coupon           CouponRef `json:"coupon"`
}

// WindowPreview is one upcoming window returned by the preview endpoint.
type WindowPreview struct {
	Date            string    `json:"date"`
	StartDateTime   time.Time `json:"start_datetime"`
	EndDateTime     time.Time `json:"end_datetime"`
	DurationMinutes int       `json:"duration_minutes"`
}
