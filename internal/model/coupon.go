package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coupon is a coupon template owned by a shop. Issues are materialized
// from it either manually or by a schedule.
type Coupon struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ShopID      primitive.ObjectID `bson:"shop_id" json:"shop_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Conditions  string             `bson:"conditions,omitempty" json:"conditions,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	ImageURL    string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	IsActive    bool               `bson:"is_active" json:"is_active"`
	IssueSeq    int64              `bson:"issue_seq" json:"-"` // bumped by every manual issuance
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// CouponSummary is a coupon plus the aggregate counters shown in the list.
type CouponSummary struct {
	Coupon
	ActiveIssuesCount int64 `json:"active_issues_count"`
	SchedulesCount    int64 `json:"schedules_count"`
	TotalIssuesCount  int64 `json:"total_issues_count"`
}

// CouponRef is the embedded coupon relation returned with issues and schedules.
type CouponRef struct {
	ID          primitive.ObjectID `bson:"id" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Conditions  string             `bson:"conditions,omitempty" json:"conditions,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

func (c *Coupon) Ref() CouponRef {
	return CouponRef{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Conditions:  c.Conditions,
		Notes:       c.Notes,
	}
}

// CouponRequest is the body of POST /coupons and PUT /coupons/:id
type CouponRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"required"`
	Conditions  string `json:"conditions"`
	Notes       string `json:"notes"`
	ImageURL    string `json:"image_url" binding:"omitempty,url"`
}
