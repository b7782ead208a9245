package handler

import (
	"net/http"
	"time"

	"coupon-scheduler/internal/middleware"
	"coupon-scheduler/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services are the dependencies of the HTTP API.
type Services struct {
	Auth          *service.AuthService
	Coupons       *service.CouponService
	Issues        *service.IssueService
	Schedules     *service.ScheduleService
	Notifications *service.NotificationService
	Dashboard     *service.DashboardService
}

// SetupRouter builds the gin engine with every route under /api.
func SetupRouter(svc Services, corsOrigins []string) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())

	corsConfig := cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/auth/login", loginHandler(svc.Auth))

	authed := api.Group("", middleware.Auth(svc.Auth))
	{
		authed.POST("/auth/logout", logoutHandler())
		authed.GET("/auth/me", meHandler(svc.Auth))
		authed.GET("/shop", shopHandler(svc.Auth))

		authed.GET("/dashboard/stats", dashboardStatsHandler(svc.Dashboard))
		authed.GET("/dashboard/activities", dashboardActivitiesHandler(svc.Dashboard))
	}

	coupons := authed.Group("/coupons")
	{
		coupons.GET("", listCouponsHandler(svc.Coupons))
		coupons.POST("", createCouponHandler(svc.Coupons))
		coupons.PUT("/:id", updateCouponHandler(svc.Coupons))
		coupons.POST("/:id/issue-now", issueNowHandler(svc.Issues))

		coupons.GET("/active-issues", activeIssuesHandler(svc.Issues))
		coupons.GET("/issues/:id", getIssueHandler(svc.Issues))
		coupons.POST("/issues/:id/stop", stopIssueHandler(svc.Issues))
		coupons.POST("/issues/:id/acquire", acquireHandler(svc.Issues))
		coupons.GET("/issues/:id/acquisitions", issueAcquisitionsHandler(svc.Issues))

		coupons.GET("/schedules", listSchedulesHandler(svc.Schedules))
		coupons.POST("/schedules", createScheduleHandler(svc.Schedules))
		coupons.PUT("/schedules/:id", updateScheduleHandler(svc.Schedules))
		coupons.DELETE("/schedules/:id", deleteScheduleHandler(svc.Schedules))
		coupons.PATCH("/schedules/:id/toggle-status", toggleScheduleHandler(svc.Schedules))
		coupons.GET("/schedules/:id/preview", previewScheduleHandler(svc.Schedules))

		coupons.GET("/acquisition-notifications", listNotificationsHandler(svc.Notifications))
		coupons.GET("/unread-notifications", unreadNotificationsHandler(svc.Notifications))
		coupons.POST("/acquisition-notifications/read-all", markAllReadHandler(svc.Notifications))
		coupons.POST("/acquisition-notifications/:id/read", markReadHandler(svc.Notifications))
		coupons.POST("/acquisition-notifications/:id/banner-shown", bannerShownHandler(svc.Notifications))
	}

	return router
}
