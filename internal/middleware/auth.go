package middleware

import (
	"errors"
	"net/http"
	"strings"

	"coupon-scheduler/internal/service"
	apperrors "coupon-scheduler/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Context keys set by Auth
const (
	OperatorIDKey = "operatorID"
	ShopIDKey     = "shopID"
	RoleKey       = "role"
)

// TokenParser verifies a bearer token.
type TokenParser interface {
	ParseToken(raw string) (*service.Claims, error)
}

// Auth requires a valid operator bearer token and stores the operator and
// shop ids in the gin context.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			unauthorized(c, "invalid authorization header")
			return
		}

		claims, err := parser.ParseToken(parts[1])
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, apperrors.ErrAuthExpired) {
				msg = "session expired, please sign in again"
			}
			unauthorized(c, msg)
			return
		}

		c.Set(OperatorIDKey, claims.OperatorID)
		c.Set(ShopIDKey, claims.ShopID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": msg})
}

// ShopID returns the shop of the authenticated operator
func ShopID(c *gin.Context) primitive.ObjectID {
	id, _ := c.Get(ShopIDKey)
	oid, _ := id.(primitive.ObjectID)
	return oid
}

// OperatorID returns the authenticated operator
func OperatorID(c *gin.Context) primitive.ObjectID {
	id, _ := c.Get(OperatorIDKey)
	oid, _ := id.(primitive.ObjectID)
	return oid
}
