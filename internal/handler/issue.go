package handler

import (
	"net/http"
	"time"

	"coupon-scheduler/internal/middleware"
	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/service"

	"github.com/gin-gonic/gin"
)

// activeIssuesHandler handles GET /api/coupons/active-issues
func activeIssuesHandler(svc *service.IssueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := svc.ListActive(c.Request.Context(), middleware.ShopID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", views)
	}
}

// issueNowHandler handles POST /api/coupons/:id/issue-now. Any live issue
// of the coupon is stopped first.
func issueNowHandler(svc *service.IssueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		couponID, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req model.IssueNowRequest
		if !bindJSON(c, &req) {
			return
		}

		issue, err := svc.IssueNow(c.Request.Context(), middleware.ShopID(c), couponID, middleware.OperatorID(c).Hex(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusCreated, "coupon issued", issue)
	}
}

// getIssueHandler handles GET /api/coupons/issues/:id
func getIssueHandler(svc *service.IssueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		view, err := svc.Get(c.Request.Context(), middleware.ShopID(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", view)
	}
}

// stopIssueHandler handles POST /api/coupons/issues/:id/stop
func stopIssueHandler(svc *service.IssueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		issue, err := svc.Stop(c.Request.Context(), middleware.ShopID(c), id, middleware.OperatorID(c).Hex())
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "coupon issue stopped", issue)
	}
}

// acquireHandler handles POST /api/coupons/issues/:id/acquire. Repeating
// the request for the same user returns the existing acquisition with 200.
func acquireHandler(svc *service.IssueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req model.AcquireRequest
		if !bindJSON(c, &req) {
			return
		}

		acquisition, created, err := svc.Acquire(c.Request.Context(), middleware.ShopID(c), id, req.UserID, req.UserName)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := model.NewAcquisitionResponse(acquisition, created, time.Now())
		if created {
			success(c, http.StatusCreated, "coupon acquired", resp)
			return
		}
		success(c, http.StatusOK, "coupon already acquired", resp)
	}
}

// issueAcquisitionsHandler handles GET /api/coupons/issues/:id/acquisitions
func issueAcquisitionsHandler(svc *service.IssueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		acquisitions, err := svc.Acquisitions(c.Request.Context(), middleware.ShopID(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", acquisitions)
	}
}
