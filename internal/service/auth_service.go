package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"visara/internal/config"
	"visara/internal/domain"
)

// Claims represents the JWT claims for an operator session.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenPair holds the issued access token.
type TokenPair struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoginInput is the DTO for login requests.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// AuthService defines the authentication contract. The service runs with a
// single operator credential from config; there is no user store.
type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*TokenPair, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type authService struct {
	operator config.OperatorConfig
	cfg      config.JWTConfig
}

// NewAuthService creates a new AuthService implementation.
func NewAuthService(operator config.OperatorConfig, cfg config.JWTConfig) AuthService {
	return &authService{operator: operator, cfg: cfg}
}

func (s *authService) Login(_ context.Context, input LoginInput) (*TokenPair, error) {
	if input.Email != s.operator.Email {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.operator.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.generateToken(input.Email)
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

func (s *authService) generateToken(email string) (*TokenPair, error) {
	now := time.Now()
	expiry := now.Add(s.cfg.AccessExpiry)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.New().String(),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("auth.generateToken: %w", err)
	}

	return &TokenPair{AccessToken: signed, ExpiresAt: expiry}, nil
}
