package service

import (
	"context"
	"time"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultNotificationLimit caps the notification list when the caller
// gives no limit.
const DefaultNotificationLimit = 50

type NotificationService struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo, now: time.Now}
}

// List returns the newest notifications and the unread badge count.
func (s *NotificationService) List(ctx context.Context, shopID primitive.ObjectID, limit int64) (*model.NotificationList, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	list, err := s.repo.List(ctx, shopID, limit)
	if err != nil {
		return nil, err
	}
	return s.withUnread(ctx, shopID, list)
}

// Unread returns the notifications the banner has not shown yet.
func (s *NotificationService) Unread(ctx context.Context, shopID primitive.ObjectID) (*model.NotificationList, error) {
	list, err := s.repo.ListForBanner(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return s.withUnread(ctx, shopID, list)
}

func (s *NotificationService) withUnread(ctx context.Context, shopID primitive.ObjectID, list []*model.Notification) (*model.NotificationList, error) {
	unread, err := s.repo.CountUnread(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return &model.NotificationList{Notifications: list, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, shopID, id primitive.ObjectID) error {
	return s.repo.MarkRead(ctx, shopID, id, s.now())
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, shopID primitive.ObjectID) (int64, error) {
	return s.repo.MarkAllRead(ctx, shopID, s.now())
}

func (s *NotificationService) MarkBannerShown(ctx context.Context, shopID, id primitive.ObjectID) error {
	return s.repo.MarkBannerShown(ctx, shopID, id, s.now())
}
