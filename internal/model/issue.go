package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IssueType string

const (
	IssueTypeManual         IssueType = "manual"
	IssueTypeBatchGenerated IssueType = "batch_generated"
)

// Issue is one materialized occurrence of a coupon. It is a snapshot:
// editing or deleting the originating schedule never touches it.
type Issue struct {
	ID                  primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	ShopID              primitive.ObjectID  `bson:"shop_id" json:"shop_id"`
	CouponID            primitive.ObjectID  `bson:"coupon_id" json:"coupon_id"`
	ScheduleID          *primitive.ObjectID `bson:"schedule_id,omitempty" json:"schedule_id,omitempty"`
	IssueType           IssueType           `bson:"issue_type" json:"issue_type"`
	StartDateTime       time.Time           `bson:"start_datetime" json:"start_datetime"`
	EndDateTime         time.Time           `bson:"end_datetime" json:"end_datetime"`
	DurationMinutes     int                 `bson:"duration_minutes" json:"duration_minutes"`
	MaxAcquisitions     *int                `bson:"max_acquisitions,omitempty" json:"max_acquisitions,omitempty"`
	CurrentAcquisitions int                 `bson:"current_acquisitions" json:"current_acquisitions"`
	StoppedAt           *time.Time          `bson:"stopped_at,omitempty" json:"stopped_at,omitempty"`
	StoppedBy           string              `bson:"stopped_by,omitempty" json:"stopped_by,omitempty"`
	IssuedBy            string              `bson:"issued_by,omitempty" json:"-"`
	IssuedAt            time.Time           `bson:"issued_at" json:"issued_at"`
	Coupon              CouponRef           `bson:"coupon" json:"coupon"`
}

// OpenAt reports whether acquisitions are accepted at now.
func (i *Issue) OpenAt(now time.Time) bool {
	return !now.Before(i.StartDateTime) && now.Before(i.EndDateTime)
}

// IsFull reports whether the cap, if any, has been reached.
func (i *Issue) IsFull() bool {
	return i.MaxAcquisitions != nil && i.CurrentAcquisitions >= *i.MaxAcquisitions
}

// IssueNowRequest is the body of POST /coupons/:id/issue-now
type IssueNowRequest struct {
	DurationMinutes int  `json:"duration_minutes" binding:"required,min=1,max=10080"`
	MaxAcquisitions *int `json:"max_acquisitions" binding:"omitempty,min=1"`
}
