package handler

import (
	"net/http"

	"coupon-scheduler/internal/middleware"
	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/service"

	"github.com/gin-gonic/gin"
)

// loginHandler handles POST /api/auth/login
func loginHandler(svc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.LoginRequest
		if !bindJSON(c, &req) {
			return
		}

		resp, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "signed in", resp)
	}
}

// logoutHandler handles POST /api/auth/logout. Tokens are stateless, so the
// client discarding its session is the logout.
func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		success(c, http.StatusOK, "signed out", nil)
	}
}

// meHandler handles GET /api/auth/me
func meHandler(svc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := svc.Me(c.Request.Context(), middleware.OperatorID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", profile)
	}
}

// shopHandler handles GET /api/shop
func shopHandler(svc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		shop, err := svc.Shop(c.Request.Context(), middleware.ShopID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", shop)
	}
}
