package handler

import (
	"net/http"

	"coupon-scheduler/internal/middleware"
	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/service"

	"github.com/gin-gonic/gin"
)

func listSchedulesHandler(svc *service.ScheduleService) gin.HandlerFunc {
	return func(c *gin.Context) {
		schedules, err := svc.List(c.Request.Context(), middleware.ShopID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", schedules)
	}
}

// createScheduleHandler handles POST /api/coupons/schedules. Every rule
// violation is returned at once as a 422.
func createScheduleHandler(svc *service.ScheduleService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.ScheduleRequest
		if !bindJSON(c, &req) {
			return
		}

		sched, err := svc.Create(c.Request.Context(), middleware.ShopID(c), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusCreated, "schedule created", sched)
	}
}

func updateScheduleHandler(svc *service.ScheduleService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req model.ScheduleRequest
		if !bindJSON(c, &req) {
			return
		}

		sched, err := svc.Update(c.Request.Context(), middleware.ShopID(c), id, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "schedule updated", sched)
	}
}

func deleteScheduleHandler(svc *service.ScheduleService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), middleware.ShopID(c), id); err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "schedule deleted", nil)
	}
}

func toggleScheduleHandler(svc *service.ScheduleService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		sched, err := svc.ToggleStatus(c.Request.Context(), middleware.ShopID(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		msg := "schedule paused"
		if sched.IsActive {
			msg = "schedule resumed"
		}
		success(c, http.StatusOK, msg, sched)
	}
}

// previewScheduleHandler handles GET /api/coupons/schedules/:id/preview?from=&to=
func previewScheduleHandler(svc *service.ScheduleService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		windows, err := svc.Preview(c.Request.Context(), middleware.ShopID(c), id, c.Query("from"), c.Query("to"))
		if err != nil {
			respondError(c, err)
			return
		}
		success(c, http.StatusOK, "", windows)
	}
}
