package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/infrastructure/auth"
	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/cloudpos/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "cloudpos-test",
		MaxRefreshCount:        10,
	})
}

func newCashierSubject() auth.TokenSubject {
	branchID := uuid.New()
	return auth.TokenSubject{
		TenantID:    uuid.New(),
		UserID:      uuid.New(),
		Username:    "kasun",
		BranchID:    &branchID,
		Permissions: identity.RolePermissions[identity.RoleCashier],
	}
}

func jwtRouter(cfg JWTMiddlewareConfig, seen **identity.Principal) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuth(cfg))
	handler := func(c *gin.Context) {
		*seen = GetPrincipal(c)
		c.Status(http.StatusOK)
	}
	router.GET("/api/v1/sales/orders", handler)
	router.POST("/api/v1/auth/login", handler)
	router.POST("/api/v1/payment/callback/payhere", handler)
	return router
}

func TestJWTAuth_ValidToken(t *testing.T) {
	jwtService := newTestJWTService()
	sub := newCashierSubject()
	pair, err := jwtService.GenerateTokenPair(sub)
	require.NoError(t, err)

	var principal *identity.Principal
	var tenantInCtx string
	router := gin.New()
	router.Use(JWTAuth(DefaultJWTConfig(jwtService, nil, nil)))
	router.GET("/api/v1/sales/orders", func(c *gin.Context) {
		principal = GetPrincipal(c)
		tenantInCtx = logger.GetTenantID(c.Request.Context())
		assert.Equal(t, sub.UserID.String(), c.GetString(logger.GinUserIDKey))
		assert.NotNil(t, GetJWTClaims(c))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/orders", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, principal)
	assert.Equal(t, sub.TenantID, principal.TenantID)
	assert.Equal(t, *sub.BranchID, *principal.BranchID)
	assert.True(t, principal.Can("create:order", sub.BranchID))
	assert.False(t, principal.Can("create:order", nil))
	assert.Equal(t, sub.TenantID.String(), tenantInCtx)
}

func TestJWTAuth_Rejections(t *testing.T) {
	jwtService := newTestJWTService()
	pair, err := jwtService.GenerateTokenPair(newCashierSubject())
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"not bearer", "Basic abc", "UNAUTHORIZED"},
		{"garbage token", BearerPrefix + "not.a.jwt", "INVALID_TOKEN"},
		{"refresh token used as access", BearerPrefix + pair.RefreshToken, "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *identity.Principal
			router := jwtRouter(DefaultJWTConfig(jwtService, nil, nil), &seen)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/orders", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
			assert.Nil(t, seen)
		})
	}
}

func TestJWTAuth_RevokedToken(t *testing.T) {
	jwtService := newTestJWTService()
	sub := newCashierSubject()
	pair, err := jwtService.GenerateTokenPair(sub)
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	blacklist := auth.NewInMemoryTokenBlacklist()
	require.NoError(t, blacklist.Revoke(context.Background(), claims.ID, time.Minute))

	var seen *identity.Principal
	router := jwtRouter(DefaultJWTConfig(jwtService, blacklist, nil), &seen)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/orders", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REVOKED")
}

func TestJWTAuth_PublicPaths(t *testing.T) {
	var seen *identity.Principal
	router := jwtRouter(DefaultJWTConfig(newTestJWTService(), nil, nil), &seen)

	for _, path := range []string{"/api/v1/auth/login", "/api/v1/payment/callback/payhere"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Nil(t, seen)
	}
}
