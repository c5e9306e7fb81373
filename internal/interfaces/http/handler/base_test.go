package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	billingapp "github.com/cloudpos/backend/internal/application/billing"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/interfaces/http/dto"
	"github.com/cloudpos/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func withPrincipal(p *identity.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			c.Set(middleware.PrincipalKey, p)
		}
		c.Next()
	}
}

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantHelp   bool
	}{
		{"domain not found", shared.ErrNotFound, http.StatusNotFound, "NOT_FOUND", false},
		{"wrapped forbidden", fmt.Errorf("load order: %w", shared.ErrForbidden), http.StatusForbidden, "FORBIDDEN", false},
		{"family suffix", shared.NewDomainError("PRODUCT_NOT_FOUND", "gone"), http.StatusNotFound, "PRODUCT_NOT_FOUND", false},
		{"business rule", shared.ErrInsufficientStock, http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK", false},
		{"plan limit", &billingapp.LimitExceededError{Resource: "branches", Current: 1, Limit: 1, PlanCode: "STARTER"},
			http.StatusPaymentRequired, "PLAN_LIMIT_REACHED", true},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, dto.ErrCodeTimeout, false},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.Header.Set(middleware.HeaderRequestID, "req-1")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
			if tt.wantHelp {
				assert.Equal(t, "/api/v1/billing/plans", resp.Error.Help)
			} else {
				assert.Empty(t, resp.Error.Help)
			}
		})
	}

	t.Run("internal details are hidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		h.HandleError(c, errors.New("dial tcp 10.0.0.5:5432: refused"))

		assert.NotContains(t, w.Body.String(), "10.0.0.5")
	})
}

func TestByID(t *testing.T) {
	h := &BaseHandler{}
	p := identity.NewPrincipal(uuid.New(), uuid.New(), nil, []string{"*"})
	id := uuid.New()

	router := func(p *identity.Principal, fn func(context.Context, *identity.Principal, uuid.UUID) (string, error)) *gin.Engine {
		r := gin.New()
		r.GET("/things/:id", withPrincipal(p), func(c *gin.Context) { byID(h, c, fn) })
		return r
	}

	t.Run("passes the parsed id", func(t *testing.T) {
		var got uuid.UUID
		r := router(p, func(_ context.Context, _ *identity.Principal, id uuid.UUID) (string, error) {
			got = id
			return "ok", nil
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/"+id.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, id, got)
		assert.Equal(t, "ok", decode(t, w).Data)
	})

	t.Run("malformed id", func(t *testing.T) {
		called := false
		r := router(p, func(context.Context, *identity.Principal, uuid.UUID) (string, error) {
			called = true
			return "", nil
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidID, decode(t, w).Error.Code)
		assert.False(t, called)
	})

	t.Run("no principal", func(t *testing.T) {
		r := router(nil, func(context.Context, *identity.Principal, uuid.UUID) (string, error) {
			return "", nil
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/"+id.String(), nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("service error", func(t *testing.T) {
		r := router(p, func(context.Context, *identity.Principal, uuid.UUID) (string, error) {
			return "", shared.ErrNotFound
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/"+id.String(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Page(c, shared.NewPaginated([]string{"a", "b"}, 12, 2, 2))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(12), resp.Meta.Total)
	assert.Len(t, resp.Data, 2)
}

func TestListQuery_Filter(t *testing.T) {
	f := ListQuery{}.Filter()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 20, f.PageSize)

	f = ListQuery{Page: 3, PageSize: 50, Search: "tea", OrderBy: "name", OrderDir: "asc"}.Filter()
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 50, f.PageSize)
	assert.Equal(t, "tea", f.Search)
	assert.Equal(t, "name", f.OrderBy)
	assert.Equal(t, "asc", f.OrderDir)
}
