package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueRef is the issue snapshot carried by a notification.
type IssueRef struct {
	ID        primitive.ObjectID `bson:"id" json:"id"`
	IssueType IssueType          `bson:"issue_type" json:"issue_type"`
	Coupon    CouponRef          `bson:"coupon" json:"coupon"`
}

// Notification tells the shop that a user acquired one of its coupons.
type Notification struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ShopID        primitive.ObjectID `bson:"shop_id" json:"-"`
	AcquisitionID primitive.ObjectID `bson:"acquisition_id" json:"acquisition_id"`
	CouponIssue   IssueRef           `bson:"coupon_issue" json:"coupon_issue"`
	UserID        string             `bson:"user_id" json:"user_id"`
	UserName      string             `bson:"user_name,omitempty" json:"user_name,omitempty"`
	AcquiredAt    time.Time          `bson:"acquired_at" json:"acquired_at"`
	IsRead        bool               `bson:"is_read" json:"is_read"`
	ReadAt        *time.Time         `bson:"read_at,omitempty" json:"read_at,omitempty"`
	BannerShown   bool               `bson:"banner_shown" json:"banner_shown"`
	BannerShownAt *time.Time         `bson:"banner_shown_at,omitempty" json:"banner_shown_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// NotificationList is the payload of the notification list endpoints.
type NotificationList struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int64           `json:"unread_count"`
}
