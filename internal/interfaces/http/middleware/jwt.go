package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/infrastructure/auth"
	"github.com/cloudpos/backend/internal/infrastructure/logger"
	"github.com/cloudpos/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gin context keys set by JWTAuth
const (
	JWTClaimsKey  = "jwt_claims"
	PrincipalKey  = "principal"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// TokenBlacklist is optional; lookups fail open when the store errors
	TokenBlacklist   auth.TokenBlacklist
	SkipPaths        []string
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// DefaultJWTConfig returns the public paths of the POS API
func DefaultJWTConfig(jwtService *auth.JWTService, blacklist auth.TokenBlacklist, log *zap.Logger) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		SkipPaths: []string{
			"/health",
			"/api/v1/health",
			"/api/v1/auth/register",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api/v1/payment/callback/",
		},
		Logger: log,
	}
}

// JWTAuth validates the bearer token and stores the evaluated Principal
// for the permission middleware and handlers.
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortAuth(c, cfg, auth.ErrInvalidToken, "Missing authorization header")
			return
		}
		token, found := strings.CutPrefix(header, BearerPrefix)
		if !found || token == "" {
			abortAuth(c, cfg, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			abortAuth(c, cfg, err, "Token validation failed")
			return
		}

		if cfg.TokenBlacklist != nil {
			ctx := c.Request.Context()
			revoked, err := cfg.TokenBlacklist.IsRevoked(ctx, claims.ID)
			if err == nil && !revoked {
				revoked, err = cfg.TokenBlacklist.IsUserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
			}
			if err != nil {
				cfg.Logger.Error("Token blacklist lookup failed", zap.String("jti", claims.ID), zap.Error(err))
			} else if revoked {
				abortAuth(c, cfg, auth.ErrTokenRevoked, "Token has been revoked")
				return
			}
		}

		principal, err := principalFromClaims(claims)
		if err != nil {
			abortAuth(c, cfg, auth.ErrInvalidClaims, "Malformed token claims")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(PrincipalKey, principal)
		c.Set(logger.GinTenantIDKey, claims.TenantID)
		c.Set(logger.GinUserIDKey, claims.UserID)
		if claims.BranchID != "" {
			c.Set(logger.GinBranchIDKey, claims.BranchID)
		}

		ctx := logger.WithTenantID(c.Request.Context(), claims.TenantID)
		ctx = logger.WithUserID(ctx, claims.UserID)
		if claims.BranchID != "" {
			ctx = logger.WithBranchID(ctx, claims.BranchID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func principalFromClaims(claims *auth.Claims) (*identity.Principal, error) {
	tenantID, err := claims.TenantUUID()
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserUUID()
	if err != nil {
		return nil, err
	}
	branchID, err := claims.BranchUUID()
	if err != nil {
		return nil, err
	}
	return identity.NewPrincipal(userID, tenantID, branchID, claims.Permissions), nil
}

func abortAuth(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	cfg.Logger.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("reason", message),
		zap.String("path", c.Request.URL.Path),
	)

	code, msg := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, msg = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType), errors.Is(err, auth.ErrInvalidClaims):
		code, msg = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, msg, c.GetString(logger.GinRequestIDKey)))
}

// GetJWTClaims retrieves the validated token claims
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetPrincipal returns the authenticated principal, or nil
func GetPrincipal(c *gin.Context) *identity.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*identity.Principal); ok {
			return p
		}
	}
	return nil
}
