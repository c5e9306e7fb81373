package auth

import (
	"errors"
	"time"

	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// Claims are the POS token claims. Access tokens carry the flattened
// permission strings of the user's enabled roles and the home branch.
type Claims struct {
	jwt.RegisteredClaims
	TenantID     string    `json:"tid"`
	UserID       string    `json:"uid"`
	Username     string    `json:"usr,omitempty"`
	BranchID     string    `json:"bid,omitempty"`
	Permissions  []string  `json:"perms,omitempty"`
	TokenType    TokenType `json:"typ"`
	RefreshCount int       `json:"rc,omitempty"`
}

// TenantUUID parses TenantID
func (c *Claims) TenantUUID() (uuid.UUID, error) { return uuid.Parse(c.TenantID) }

// UserUUID parses UserID
func (c *Claims) UserUUID() (uuid.UUID, error) { return uuid.Parse(c.UserID) }

// BranchUUID parses BranchID; an empty claim yields nil
func (c *Claims) BranchUUID() (*uuid.UUID, error) {
	if c.BranchID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(c.BranchID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// IssuedAtTime returns iat, or the zero time
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// RemainingTTL is the time until expiry, never negative
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if d := time.Until(c.ExpiresAt.Time); d > 0 {
		return d
	}
	return 0
}

// TokenPair is returned by login and refresh
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// TokenSubject is what a token pair is issued for
type TokenSubject struct {
	TenantID    uuid.UUID
	UserID      uuid.UUID
	Username    string
	BranchID    *uuid.UUID
	Permissions []string
}

// JWTService issues and validates HS256 tokens
type JWTService struct {
	accessSecret      []byte
	refreshSecret     []byte
	accessExpiration  time.Duration
	refreshExpiration time.Duration
	issuer            string
	maxRefreshCount   int
	now               func() time.Time
}

// NewJWTService builds a service from config. RefreshSecret falls back to Secret.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	refresh := cfg.RefreshSecret
	if refresh == "" {
		refresh = cfg.Secret
	}
	return &JWTService{
		accessSecret:      []byte(cfg.Secret),
		refreshSecret:     []byte(refresh),
		accessExpiration:  cfg.AccessTokenExpiration,
		refreshExpiration: cfg.RefreshTokenExpiration,
		issuer:            cfg.Issuer,
		maxRefreshCount:   cfg.MaxRefreshCount,
		now:               time.Now,
	}
}

// AccessTokenExpiration returns the configured access lifetime
func (s *JWTService) AccessTokenExpiration() time.Duration { return s.accessExpiration }

// RefreshTokenExpiration returns the configured refresh lifetime
func (s *JWTService) RefreshTokenExpiration() time.Duration { return s.refreshExpiration }

// GenerateTokenPair issues a fresh access/refresh pair
func (s *JWTService) GenerateTokenPair(sub TokenSubject) (*TokenPair, error) {
	return s.issue(sub, 0)
}

func (s *JWTService) issue(sub TokenSubject, refreshCount int) (*TokenPair, error) {
	now := s.now()
	accessExp := now.Add(s.accessExpiration)
	refreshExp := now.Add(s.refreshExpiration)

	access := &Claims{
		RegisteredClaims: s.registered(sub.UserID, now, accessExp),
		TenantID:         sub.TenantID.String(),
		UserID:           sub.UserID.String(),
		Username:         sub.Username,
		Permissions:      sub.Permissions,
		TokenType:        TokenTypeAccess,
	}
	if sub.BranchID != nil {
		access.BranchID = sub.BranchID.String()
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(s.accessSecret)
	if err != nil {
		return nil, err
	}

	// permissions are re-read from roles on refresh, so the refresh token stays minimal
	refresh := &Claims{
		RegisteredClaims: s.registered(sub.UserID, now, refreshExp),
		TenantID:         sub.TenantID.String(),
		UserID:           sub.UserID.String(),
		TokenType:        TokenTypeRefresh,
		RefreshCount:     refreshCount,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) registered(userID uuid.UUID, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{s.issuer},
		ExpiresAt: jwt.NewNumericDate(exp),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

// ValidateAccessToken parses and checks an access token
func (s *JWTService) ValidateAccessToken(token string) (*Claims, error) {
	return s.validate(token, s.accessSecret, TokenTypeAccess)
}

// ValidateRefreshToken parses and checks a refresh token
func (s *JWTService) ValidateRefreshToken(token string) (*Claims, error) {
	return s.validate(token, s.refreshSecret, TokenTypeRefresh)
}

func (s *JWTService) validate(tokenString string, secret []byte, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != want {
		return nil, ErrInvalidTokenType
	}
	if _, err := claims.TenantUUID(); err != nil {
		return nil, ErrInvalidClaims
	}
	if _, err := claims.UserUUID(); err != nil {
		return nil, ErrInvalidClaims
	}
	if _, err := claims.BranchUUID(); err != nil {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new pair. The caller supplies the
// subject re-read from storage so revoked roles or a moved branch take effect.
func (s *JWTService) Refresh(claims *Claims, sub TokenSubject) (*TokenPair, error) {
	if s.maxRefreshCount > 0 && claims.RefreshCount >= s.maxRefreshCount {
		return nil, ErrMaxRefreshExceeded
	}
	return s.issue(sub, claims.RefreshCount+1)
}
