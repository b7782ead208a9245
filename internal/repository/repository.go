package repository

import (
	"context"
	"time"

	"coupon-scheduler/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names shared by the MongoDB repositories and the index setup.
const (
	CollectionCoupons       = "coupons"
	CollectionSchedules     = "coupon_schedules"
	CollectionIssues        = "coupon_issues"
	CollectionAcquisitions  = "coupon_acquisitions"
	CollectionNotifications = "acquisition_notifications"
	CollectionOperators     = "shop_admins"
	CollectionShops         = "shops"
)

// Transactor runs fn as one indivisible unit. key names the resource the
// unit serializes on ("issue:<id>", "coupon:<id>"); stores that serialize
// through document write conflicts may ignore it.
type Transactor interface {
	WithTransaction(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// CouponRepository defines the interface for coupon template operations
type CouponRepository interface {
	// Create inserts a new coupon and sets its ID
	Create(ctx context.Context, coupon *model.Coupon) error

	// Update replaces the editable fields of a coupon
	Update(ctx context.Context, coupon *model.Coupon) error

	// GetByID retrieves a coupon scoped to a shop
	GetByID(ctx context.Context, shopID, id primitive.ObjectID) (*model.Coupon, error)

	// List returns every coupon of a shop, newest first
	List(ctx context.Context, shopID primitive.ObjectID) ([]*model.Coupon, error)

	// BumpIssueSeq increments the coupon's issuance counter. Inside a
	// transaction this makes concurrent manual issuances of the same coupon
	// conflict with each other.
	BumpIssueSeq(ctx context.Context, shopID, id primitive.ObjectID) (*model.Coupon, error)

	// Count returns the number of coupons of a shop
	Count(ctx context.Context, shopID primitive.ObjectID) (int64, error)
}

// ScheduleRepository defines the interface for recurring schedule operations
type ScheduleRepository interface {
	Create(ctx context.Context, s *model.Schedule) error
	Update(ctx context.Context, s *model.Schedule) error
	Delete(ctx context.Context, shopID, id primitive.ObjectID) error
	GetByID(ctx context.Context, shopID, id primitive.ObjectID) (*model.Schedule, error)
	List(ctx context.Context, shopID primitive.ObjectID) ([]*model.Schedule, error)

	// ListActive returns active schedules across all shops, for the batch
	ListActive(ctx context.Context) ([]*model.Schedule, error)

	// SetLastProcessed records the date the batch materialized through
	SetLastProcessed(ctx context.Context, id primitive.ObjectID, date string) error

	CountByCoupon(ctx context.Context, couponID primitive.ObjectID) (int64, error)
	CountActive(ctx context.Context, shopID primitive.ObjectID) (int64, error)
}

// IssueRepository defines the interface for coupon issue operations
type IssueRepository interface {
	// Create inserts a new issue. A second batch issue for the same
	// (schedule, start) returns errors.ErrDuplicate.
	Create(ctx context.Context, issue *model.Issue) error

	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Issue, error)

	// GetBySlot finds the batch issue materialized for a schedule window
	GetBySlot(ctx context.Context, scheduleID primitive.ObjectID, start time.Time) (*model.Issue, error)

	// ListLive returns issues of a shop with start <= now < end
	ListLive(ctx context.Context, shopID primitive.ObjectID, now time.Time) ([]*model.Issue, error)

	// ListLiveByCoupon returns live issues of one coupon
	ListLiveByCoupon(ctx context.Context, couponID primitive.ObjectID, now time.Time) ([]*model.Issue, error)

	// ListBySchedule returns the batch issues of a schedule that end after
	// from, earliest start first
	ListBySchedule(ctx context.Context, scheduleID primitive.ObjectID, from time.Time) ([]*model.Issue, error)

	// DeleteUnopened removes an issue that opens after now and has no
	// acquisitions. It reports false when the issue no longer qualifies.
	DeleteUnopened(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)

	// ListRecent returns the most recently issued issues of a shop
	ListRecent(ctx context.Context, shopID primitive.ObjectID, limit int64) ([]*model.Issue, error)

	// ReserveSlot atomically increments current_acquisitions if the issue
	// is open at now and below its cap. Returns errors.ErrSlotUnavailable
	// when either condition fails.
	ReserveSlot(ctx context.Context, id primitive.ObjectID, now time.Time) (*model.Issue, error)

	// Stop ends an issue early at now. It is a no-op for an issue that
	// already ended.
	Stop(ctx context.Context, id primitive.ObjectID, actorID string, now time.Time) (*model.Issue, error)

	CountByCoupon(ctx context.Context, couponID primitive.ObjectID) (int64, error)
	CountLiveByCoupon(ctx context.Context, couponID primitive.ObjectID, now time.Time) (int64, error)
}

// AcquisitionRepository defines the interface for acquisition operations
type AcquisitionRepository interface {
	// Create inserts an acquisition. A second active acquisition for the
	// same (issue, user) returns errors.ErrAlreadyAcquired.
	Create(ctx context.Context, a *model.Acquisition) error

	// FindActive returns the active acquisition of a user for an issue, or nil
	FindActive(ctx context.Context, issueID primitive.ObjectID, userID string) (*model.Acquisition, error)

	// ListByIssue returns every acquisition of an issue
	ListByIssue(ctx context.Context, issueID primitive.ObjectID) ([]*model.Acquisition, error)

	// CountSince counts acquisitions of a shop made at or after since
	CountSince(ctx context.Context, shopID primitive.ObjectID, since time.Time) (int64, error)
}

// NotificationRepository defines the interface for acquisition notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	List(ctx context.Context, shopID primitive.ObjectID, limit int64) ([]*model.Notification, error)

	// ListForBanner returns unread notifications not yet shown in the banner
	ListForBanner(ctx context.Context, shopID primitive.ObjectID) ([]*model.Notification, error)

	CountUnread(ctx context.Context, shopID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, shopID, id primitive.ObjectID, now time.Time) error
	MarkAllRead(ctx context.Context, shopID primitive.ObjectID, now time.Time) (int64, error)
	MarkBannerShown(ctx context.Context, shopID, id primitive.ObjectID, now time.Time) error
}

// OperatorRepository defines the interface for shop operators and shops
type OperatorRepository interface {
	GetByEmail(ctx context.Context, email string) (*model.Operator, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Operator, error)
	Create(ctx context.Context, op *model.Operator) error

	GetShop(ctx context.Context, id primitive.ObjectID) (*model.Shop, error)
	GetShopBySlug(ctx context.Context, slug string) (*model.Shop, error)
	CreateShop(ctx context.Context, shop *model.Shop) error
}
