package handler

import (
	"net/http"

	"coupon-scheduler/internal/middleware"
	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/service"

	"github.com/gin-gonic/gin"
)

// listCouponsHandler handles GET /api/coupons
func listCouponsHandler(svc *service.CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		coupons, err := svc.ListCoupons(c.Request.Context(), middleware.ShopID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", coupons)
	}
}

// createCouponHandler handles POST /api/coupons
func createCouponHandler(svc *service.CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.CouponRequest
		if !bindJSON(c, &req) {
			return
		}

		coupon, err := svc.CreateCoupon(c.Request.Context(), middleware.ShopID(c), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusCreated, "coupon created", coupon)
	}
}

// updateCouponHandler handles PUT /api/coupons/:id
func updateCouponHandler(svc *service.CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req model.CouponRequest
		if !bindJSON(c, &req) {
			return
		}

		coupon, err := svc.UpdateCoupon(c.Request.Context(), middleware.ShopID(c), id, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "coupon updated", coupon)
	}
}
