package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Shop is the tenant every coupon, schedule and issue belongs to.
type Shop struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	Website     string             `bson:"website,omitempty" json:"website,omitempty"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"`
	IsActive    bool               `bson:"is_active" json:"is_active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// Operator is a shop administrator who signs in to the dashboard.
type Operator struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ShopID       primitive.ObjectID `bson:"shop_id" json:"shop_id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Role         string             `bson:"role" json:"role"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// OperatorProfile is the operator with its shop, as returned by /auth/me.
type OperatorProfile struct {
	Operator
	Shop *Shop `json:"shop,omitempty"`
}

// LoginResponse carries the bearer token for subsequent requests.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      OperatorProfile `json:"user"`
}
