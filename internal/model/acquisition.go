package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AcquisitionStatus is stored as active. Expired is never written: it is
// derived from expired_at when an acquisition is read. Used marks a redeemed
// acquisition (used_at set); redemption happens outside this service.
type AcquisitionStatus string

const (
	AcquisitionActive  AcquisitionStatus = "active"
	AcquisitionUsed    AcquisitionStatus = "used"
	AcquisitionExpired AcquisitionStatus = "expired"
)

// Acquisition links a user to an issue. At most one active acquisition
// exists per (issue, user).
type Acquisition struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ShopID        primitive.ObjectID `bson:"shop_id" json:"-"`
	CouponIssueID primitive.ObjectID `bson:"coupon_issue_id" json:"coupon_issue_id"`
	CouponID      primitive.ObjectID `bson:"coupon_id" json:"coupon_id"`
	UserID        string             `bson:"user_id" json:"user_id"`
	UserName      string             `bson:"user_name,omitempty" json:"user_name,omitempty"`
	AcquiredAt    time.Time          `bson:"acquired_at" json:"acquired_at"`
	ExpiredAt     time.Time          `bson:"expired_at" json:"expired_at"`
	UsedAt        *time.Time         `bson:"used_at,omitempty" json:"used_at,omitempty"`
	Status        AcquisitionStatus  `bson:"status" json:"status"`
}

// AcquireRequest is the body of POST /coupons/issues/:id/acquire
type AcquireRequest struct {
	UserID   string `json:"user_id" binding:"required,max=255"`
	UserName string `json:"user_name" binding:"max=255"`
}

// AcquisitionResponse adds the computed properties of an acquisition.
type AcquisitionResponse struct {
	Acquisition
	Created         bool `json:"created"`
	IsExpired       bool `json:"is_expired"`
	IsUsable        bool `json:"is_usable"`
	TimeUntilExpiry int  `json:"time_until_expiry"`
}

// StatusAt is the status of the acquisition at now. A used acquisition
// stays used; an unused one is expired from expired_at on.
func (a *Acquisition) StatusAt(now time.Time) AcquisitionStatus {
	switch {
	case a.Status == AcquisitionUsed || a.UsedAt != nil:
		return AcquisitionUsed
	case a.Status == AcquisitionExpired || !now.Before(a.ExpiredAt):
		return AcquisitionExpired
	default:
		return AcquisitionActive
	}
}

// NewAcquisitionResponse derives the computed properties at now. The
// reported status is StatusAt(now), not the stored one.
func NewAcquisitionResponse(a *Acquisition, created bool, now time.Time) AcquisitionResponse {
	resp := AcquisitionResponse{
		Acquisition: *a,
		Created:     created,
		IsExpired:   a.Status == AcquisitionExpired || !now.Before(a.ExpiredAt),
	}
	resp.Status = a.StatusAt(now)
	resp.IsUsable = resp.Status == AcquisitionActive
	if resp.IsUsable {
		resp.TimeUntilExpiry = int(a.ExpiredAt.Sub(now) / time.Minute)
	}
	return resp
}
