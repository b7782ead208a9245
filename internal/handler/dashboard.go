package handler

import (
	"net/http"

	"coupon-scheduler/internal/middleware"
	"coupon-scheduler/internal/service"

	"github.com/gin-gonic/gin"
)

// dashboardStatsHandler handles GET /api/dashboard/stats
func dashboardStatsHandler(svc *service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.Stats(c.Request.Context(), middleware.ShopID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", stats)
	}
}

// dashboardActivitiesHandler handles GET /api/dashboard/activities?limit=
func dashboardActivitiesHandler(svc *service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		activities, err := svc.Activities(c.Request.Context(), middleware.ShopID(c), queryInt(c, "limit", 0))
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", activities)
	}
}
