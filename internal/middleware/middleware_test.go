package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coupon-scheduler/internal/service"
	apperrors "coupon-scheduler/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubParser struct {
	claims *service.Claims
	err    error
}

func (p stubParser) ParseToken(string) (*service.Claims, error) { return p.claims, p.err }

func newRouter(parser TokenParser) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", Auth(parser), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"shop": ShopID(c).Hex(), "operator": OperatorID(c).Hex()})
	})
	return r
}

func TestAuth(t *testing.T) {
	shopID := primitive.NewObjectID()
	ok := stubParser{claims: &service.Claims{OperatorID: primitive.NewObjectID(), ShopID: shopID, ExpiresAt: time.Now().Add(time.Hour)}}

	tests := []struct {
		name   string
		parser TokenParser
		header string
		want   int
	}{
		{"missing header", ok, "", http.StatusUnauthorized},
		{"wrong scheme", ok, "Basic abc", http.StatusUnauthorized},
		{"expired", stubParser{err: apperrors.ErrAuthExpired}, "Bearer abc", http.StatusUnauthorized},
		{"invalid", stubParser{err: apperrors.ErrUnauthorized}, "Bearer abc", http.StatusUnauthorized},
		{"valid", ok, "Bearer abc", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newRouter(tt.parser).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := newRouter(stubParser{err: apperrors.ErrUnauthorized})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}
}
