package service

import (
	"context"
	"time"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// CouponService handles business logic for coupon templates
type CouponService struct {
	couponRepo   repository.CouponRepository
	scheduleRepo repository.ScheduleRepository
	issueRepo    repository.IssueRepository
	now          func() time.Time
}

// NewCouponService creates a new coupon service
func NewCouponService(couponRepo repository.CouponRepository, scheduleRepo repository.ScheduleRepository, issueRepo repository.IssueRepository) *CouponService {
	return &CouponService{
		couponRepo:   couponRepo,
		scheduleRepo: scheduleRepo,
		issueRepo:    issueRepo,
		now:          time.Now,
	}
}

// CreateCoupon creates a new, active coupon template
func (s *CouponService) CreateCoupon(ctx context.Context, shopID primitive.ObjectID, req *model.CouponRequest) (*model.Coupon, error) {
	now := s.now()
	coupon := &model.Coupon{
		ShopID:      shopID,
		Title:       req.Title,
		Description: req.Description,
		Conditions:  req.Conditions,
		Notes:       req.Notes,
		ImageURL:    req.ImageURL,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// UpdateCoupon replaces the editable fields of a template. Issues already
// materialized keep the coupon snapshot they were created with.
func (s *CouponService) UpdateCoupon(ctx context.Context, shopID, id primitive.ObjectID, req *model.CouponRequest) (*model.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}

	coupon.Title = req.Title
	coupon.Description = req.Description
	coupon.Conditions = req.Conditions
	coupon.Notes = req.Notes
	coupon.ImageURL = req.ImageURL
	coupon.UpdatedAt = s.now()

	if err := s.couponRepo.Update(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// GetCoupon retrieves one template of the shop
func (s *CouponService) GetCoupon(ctx context.Context, shopID, id primitive.ObjectID) (*model.Coupon, error) {
	return s.couponRepo.GetByID(ctx, shopID, id)
}

// ListCoupons returns the shop's templates with their issue and schedule
// counters
func (s *CouponService) ListCoupons(ctx context.Context, shopID primitive.ObjectID) ([]model.CouponSummary, error) {
	coupons, err := s.couponRepo.List(ctx, shopID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summaries := make([]model.CouponSummary, len(coupons))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, coupon := range coupons {
		summaries[i].Coupon = *coupon
		g.Go(func() error {
			var err error
			sum := &summaries[i]
			if sum.ActiveIssuesCount, err = s.issueRepo.CountLiveByCoupon(gctx, coupon.ID, now); err != nil {
				return err
			}
			if sum.TotalIssuesCount, err = s.issueRepo.CountByCoupon(gctx, coupon.ID); err != nil {
				return err
			}
			sum.SchedulesCount, err = s.scheduleRepo.CountByCoupon(gctx, coupon.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}
