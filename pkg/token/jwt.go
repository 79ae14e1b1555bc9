package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the identity claims carried by a signed access token.
// The access token is a short-lived companion to the opaque session
// token; the session row remains the source of truth for liveness.
type Claims struct {
	PrincipalID uuid.UUID `json:"principal_id"`
	Role        string    `json:"role"`
	jwt.RegisteredClaims
}

// Config holds signing configuration
type Config struct {
	Secret        string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// Service mints and validates signed access tokens
type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service {
	if cfg.AccessExpiry == 0 {
		cfg.AccessExpiry = 15 * time.Minute
	}
	if cfg.RefreshExpiry == 0 {
		cfg.RefreshExpiry = 24 * time.Hour
	}
	return &Service{cfg: cfg}
}

// GenerateAccessToken mints a short-lived signed token for the principal
func (s *Service) GenerateAccessToken(principalID uuid.UUID, role string) (string, error) {
	return s.sign(principalID, role, s.cfg.Secret, s.cfg.AccessExpiry)
}

// GenerateRefreshToken mints the longer-lived refresh companion
func (s *Service) GenerateRefreshToken(principalID uuid.UUID, role string) (string, error) {
	return s.sign(principalID, role, s.cfg.RefreshSecret, s.cfg.RefreshExpiry)
}

func (s *Service) sign(principalID uuid.UUID, role, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		PrincipalID: principalID,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   principalID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken parses and verifies an access token
func (s *Service) ValidateAccessToken(raw string) (*Claims, error) {
	return s.parse(raw, s.cfg.Secret)
}

// ValidateRefreshToken parses and verifies a refresh token
func (s *Service) ValidateRefreshToken(raw string) (*Claims, error) {
	return s.parse(raw, s.cfg.RefreshSecret)
}

func (s *Service) parse(raw, secret string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
