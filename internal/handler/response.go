package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"coupon-scheduler/internal/service"
	apperrors "coupon-scheduler/pkg/errors"
	"coupon-scheduler/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Response is the envelope of every API response.
type Response struct {
	Status  string                `json:"status"`
	Message string                `json:"message,omitempty"`
	Data    any                   `json:"data,omitempty"`
	Errors  apperrors.FieldErrors `json:"errors,omitempty"`
}

func success(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Response{Status: "success", Message: message, Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Status: "error", Message: message})
}

// respondError maps a service error onto its HTTP status.
func respondError(c *gin.Context, err error) {
	if fields, ok := apperrors.Fields(err); ok {
		c.JSON(http.StatusUnprocessableEntity, Response{
			Status:  "error",
			Message: "validation failed",
			Errors:  fields,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrInvalidID):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrCapacityExceeded),
		errors.Is(err, apperrors.ErrWindowClosed),
		errors.Is(err, apperrors.ErrDuplicate):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrInvalidCredentials),
		errors.Is(err, apperrors.ErrUnauthorized),
		errors.Is(err, apperrors.ErrAuthExpired):
		fail(c, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}

var configureBinding sync.Once

// useJSONFieldNames makes gin's binding report fields by their JSON keys.
func useJSONFieldNames() {
	configureBinding.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validation.Configure(v)
		}
	})
}

// bindJSON decodes the body into obj. It responds 422 for rule violations
// and 400 for a malformed body, and reports whether the handler may go on.
func bindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	verr := validation.ToValidationError(err)
	if _, ok := apperrors.Fields(verr); ok {
		respondError(c, verr)
		return false
	}
	fail(c, http.StatusBadRequest, "invalid request body")
	return false
}

// pathID parses the named path parameter as an ObjectID, responding 400 when
// it is malformed.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := service.ParseID(c.Param(name))
	if err != nil {
		respondError(c, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
