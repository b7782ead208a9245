package handler

import (
	"net/http"

	"coupon-scheduler/internal/middleware"
	"coupon-scheduler/internal/service"

	"github.com/gin-gonic/gin"
)

// listNotificationsHandler handles GET /api/coupons/acquisition-notifications
func listNotificationsHandler(svc *service.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", service.DefaultNotificationLimit)
		list, err := svc.List(c.Request.Context(), middleware.ShopID(c), int64(limit))
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", list)
	}
}

// unreadNotificationsHandler handles GET /api/coupons/unread-notifications.
// It returns what the banner has not shown yet.
func unreadNotificationsHandler(svc *service.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.Unread(c.Request.Context(), middleware.ShopID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", list)
	}
}

func markReadHandler(svc *service.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := svc.MarkRead(c.Request.Context(), middleware.ShopID(c), id); err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "notification marked as read", nil)
	}
}

func markAllReadHandler(svc *service.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.MarkAllRead(c.Request.Context(), middleware.ShopID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "all notifications marked as read", gin.H{"updated": n})
	}
}

func bannerShownHandler(svc *service.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := svc.MarkBannerShown(c.Request.Context(), middleware.ShopID(c), id); err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "banner marked as shown", nil)
	}
}
