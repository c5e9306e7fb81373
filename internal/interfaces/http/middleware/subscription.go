package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloudpos/backend/internal/infrastructure/logger"
	"github.com/cloudpos/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WriteGate reports whether a tenant's subscription still allows writes
type WriteGate interface {
	AllowsWrites(ctx context.Context, tenantID uuid.UUID) (bool, error)
}

// SubscriptionGuard turns a lapsed subscription into a read-only account:
// writes answer 402 SUBSCRIPTION_INACTIVE. Paths under exemptPrefixes
// (billing, logout) stay writable so the owner can pay.
func SubscriptionGuard(gate WriteGate, exemptPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		p := GetPrincipal(c)
		if p == nil {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		for _, prefix := range exemptPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		ok, err := gate.AllowsWrites(c.Request.Context(), p.TenantID)
		if err != nil {
			logger.GetGinLogger(c).Error("Subscription check failed", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, dto.NewErrorResponseWithHelp(
				dto.ErrCodeSubscriptionLapse,
				"Subscription has expired; the account is read-only until it is renewed",
				c.GetString(logger.GinRequestIDKey),
				"/api/v1/billing/subscription",
			))
			return
		}
		c.Next()
	}
}
