package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	financeapp "github.com/cloudpos/backend/internal/application/finance"
	"github.com/cloudpos/backend/internal/infrastructure/auth"
	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/cloudpos/backend/internal/infrastructure/payment"
	"github.com/cloudpos/backend/internal/interfaces/http/dto"
	"github.com/cloudpos/backend/internal/interfaces/http/handler"
	"github.com/cloudpos/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) { c.String(http.StatusOK, c.FullPath()) }

func TestRouter_Defaults(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Equal(t, "/api/v1", r.Prefix())
	assert.Empty(t, r.registrars)
	assert.Empty(t, r.middleware)
}

func TestRouter_WithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "/api/v2", r.Prefix())
}

func TestRouter_Setup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Register(NewDomainGroup("sales", "/sales").GET("/orders", ok)).
		Register(NewDomainGroup("customer", "/customers").POST("", ok))
	require.Len(t, r.registrars, 2)

	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/sales/orders", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/api/v1/sales/orders", w.Body.String())

	w = serve(engine, http.MethodPost, "/api/v1/customers", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_UseAppliesToAPIGroupOnly(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", ok)

	r := NewRouter(engine)
	r.Use(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTeapot)
	})
	r.Register(NewDomainGroup("report", "/reports").GET("/daily-sales", ok))
	r.Setup()

	assert.Equal(t, http.StatusTeapot, serve(engine, http.MethodGet, "/api/v1/reports/daily-sales", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health", "", nil).Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("catalog", "/catalog")
		assert.Equal(t, "catalog", g.Name())
		assert.Equal(t, "/catalog", g.Prefix())
	})

	t.Run("every verb", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("customer", "/customers").
			GET("/:id", ok).
			POST("", ok).
			PUT("/:id", ok).
			PATCH("/:id", ok).
			DELETE("/:id", ok).
			Handle(http.MethodOptions, "/:id", ok)
		g.RegisterRoutes(engine.Group("/api/v1"))

		for _, method := range []string{
			http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		} {
			w := serve(engine, method, "/api/v1/customers/"+uuid.NewString(), "", nil)
			assert.Equal(t, http.StatusOK, w.Code, method)
			assert.Equal(t, "/api/v1/customers/:id", w.Body.String(), method)
		}
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/api/v1/customers", "", nil).Code)
	})

	t.Run("subgroups and middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("finance", "/finance").Use(func(c *gin.Context) {
			c.Header("X-Domain", "finance")
			c.Next()
		})
		g.Group("expenses", "/expenses").GET("", ok).POST("/:id/cancel", ok)
		g.GET("/summary", ok)
		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, 3, g.RouteCount())

		w := serve(engine, http.MethodGet, "/api/v1/finance/expenses", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "finance", w.Header().Get("X-Domain"))

		w = serve(engine, http.MethodPost, "/api/v1/finance/expenses/"+uuid.NewString()+"/cancel", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAPIGroups(t *testing.T) {
	assert.Empty(t, APIGroups(Handlers{}))

	groups := APIGroups(Handlers{System: handler.NewSystemHandler("", "", nil)})
	require.Len(t, groups, 1)
	assert.Equal(t, "system", groups[0].Name())
	assert.Equal(t, 2, groups[0].RouteCount())
}

type engineFixture struct {
	engine *gin.Engine
	jwt    *auth.JWTService
}

func newEngineFixture(t *testing.T, swagger config.SwaggerConfig) *engineFixture {
	t.Helper()
	jwtSvc := auth.NewJWTService(config.JWTConfig{
		Secret:                 "router-test-secret-with-enough-length",
		AccessTokenExpiration:  time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "cloudpos-test",
	})
	callbacks := financeapp.NewPaymentCallbackService(financeapp.PaymentCallbackServiceConfig{
		Registry: payment.NewRegistry(),
	})

	engine := NewEngine(Options{
		HTTP:    config.HTTPConfig{MaxBodySize: 1 << 20},
		Swagger: swagger,
		JWT:     middleware.DefaultJWTConfig(jwtSvc, nil, zap.NewNop()),
		Logger:  zap.NewNop(),
	}, Handlers{
		System:          handler.NewSystemHandler("POS", "test", nil),
		PaymentCallback: handler.NewPaymentCallbackHandler(callbacks),
	})
	return &engineFixture{engine: engine, jwt: jwtSvc}
}

func (f *engineFixture) bearer(t *testing.T) map[string]string {
	t.Helper()
	branchID := uuid.New()
	pair, err := f.jwt.GenerateTokenPair(auth.TokenSubject{
		TenantID:    uuid.New(),
		UserID:      uuid.New(),
		Username:    "cashier1",
		BranchID:    &branchID,
		Permissions: []string{"create:order:branch-only"},
	})
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + pair.AccessToken}
}

func TestNewEngine(t *testing.T) {
	f := newEngineFixture(t, config.SwaggerConfig{})

	t.Run("health is public", func(t *testing.T) {
		w := serve(f.engine, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

		assert.Equal(t, http.StatusOK, serve(f.engine, http.MethodGet, "/api/v1/health", "", nil).Code)
	})

	t.Run("api requires a token", func(t *testing.T) {
		w := serve(f.engine, http.MethodGet, "/api/v1/system/ping", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("api accepts a valid token", func(t *testing.T) {
		w := serve(f.engine, http.MethodGet, "/api/v1/system/ping", "", f.bearer(t))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("payment callbacks skip authentication", func(t *testing.T) {
		w := serve(f.engine, http.MethodPost, "/api/v1/payment/callback/payhere", "order_id=POS-1", map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "FAIL", w.Body.String())
	})

	t.Run("unknown route", func(t *testing.T) {
		w := serve(f.engine, http.MethodGet, "/nope", "", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeRouteNotFound, resp.Error.Code)
	})

	t.Run("swagger hidden when disabled", func(t *testing.T) {
		w := serve(f.engine, http.MethodGet, "/swagger/index.html", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
