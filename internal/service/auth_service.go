package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository"
	apperrors "coupon-scheduler/pkg/errors"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the identity carried by an operator token.
type Claims struct {
	OperatorID primitive.ObjectID
	ShopID     primitive.ObjectID
	Role       string
	ExpiresAt  time.Time
}

// AuthService signs operators in and verifies their bearer tokens.
type AuthService struct {
	operators repository.OperatorRepository
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthService(operators repository.OperatorRepository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		operators: operators,
		secret:    []byte(secret),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Login checks the password and issues a token. Unknown email and wrong
// password are reported the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	op, err := s.operators.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.issueToken(op)
	if err != nil {
		return nil, err
	}
	profile, err := s.profile(ctx, op)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, ExpiresAt: expiresAt, User: *profile}, nil
}

func (s *AuthService) issueToken(op *model.Operator) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":  op.ID.Hex(),
		"shop": op.ShopID.Hex(),
		"role": op.Role,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken verifies signature and expiry. Expired tokens return
// ErrAuthExpired; every other failure returns ErrUnauthorized.
func (s *AuthService) ParseToken(raw string) (*Claims, error) {
	parser := jwt.Parser{
		ValidMethods: []string{jwt.SigningMethodHS256.Alg()},
	}
	tok, err := parser.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, apperrors.ErrAuthExpired
		}
		return nil, apperrors.ErrUnauthorized
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, apperrors.ErrUnauthorized
	}
	sub, _ := mc["sub"].(string)
	shop, _ := mc["shop"].(string)
	role, _ := mc["role"].(string)
	exp, _ := mc["exp"].(float64)

	operatorID, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	shopID, err := primitive.ObjectIDFromHex(shop)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	return &Claims{
		OperatorID: operatorID,
		ShopID:     shopID,
		Role:       role,
		ExpiresAt:  time.Unix(int64(exp), 0),
	}, nil
}

// Me returns the operator and its shop.
func (s *AuthService) Me(ctx context.Context, operatorID primitive.ObjectID) (*model.OperatorProfile, error) {
	op, err := s.operators.GetByID(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, op)
}

// Shop returns the shop profile.
func (s *AuthService) Shop(ctx context.Context, shopID primitive.ObjectID) (*model.Shop, error) {
	return s.operators.GetShop(ctx, shopID)
}

func (s *AuthService) profile(ctx context.Context, op *model.Operator) (*model.OperatorProfile, error) {
	shop, err := s.operators.GetShop(ctx, op.ShopID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	return &model.OperatorProfile{Operator: *op, Shop: shop}, nil
}

// BootstrapParams describe the first shop and its owner.
type BootstrapParams struct {
	ShopName string
	ShopSlug string
	Name     string
	Email    string
	Password string
}

// Bootstrap creates the shop and owner when they do not exist yet. It is a
// no-op when no email is configured or the operator already exists.
func (s *AuthService) Bootstrap(ctx context.Context, p BootstrapParams) error {
	if p.Email == "" {
		return nil
	}
	if _, err := s.operators.GetByEmail(ctx, p.Email); err == nil {
		return nil
	} else if !isNotFound(err) {
		return err
	}
	if p.Password == "" {
		return fmt.Errorf("bootstrap operator %s: password is empty", p.Email)
	}

	now := s.now()
	shop, err := s.operators.GetShopBySlug(ctx, p.ShopSlug)
	if isNotFound(err) {
		shop = &model.Shop{
			Name:      p.ShopName,
			Slug:      p.ShopSlug,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.operators.CreateShop(ctx, shop)
	}
	if err != nil {
		return fmt.Errorf("bootstrap shop %s: %w", p.ShopSlug, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	op := &model.Operator{
		ShopID:       shop.ID,
		Name:         p.Name,
		Email:        p.Email,
		Role:         model.RoleOwner,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.operators.Create(ctx, op); err != nil {
		return fmt.Errorf("bootstrap operator %s: %w", p.Email, err)
	}
	log.Printf("[AUTH] Created owner %s for shop %s", op.Email, shop.Slug)
	return nil
}
