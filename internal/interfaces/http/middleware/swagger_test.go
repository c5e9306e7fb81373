package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRequest(cfg config.SwaggerConfig, remoteAddr string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, "swagger")
	})
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection(t *testing.T) {
	t.Run("disabled answers 404", func(t *testing.T) {
		w := swaggerRequest(config.SwaggerConfig{Enabled: false}, "10.0.0.1:1234")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ROUTE_NOT_FOUND")
	})

	t.Run("enabled without whitelist", func(t *testing.T) {
		w := swaggerRequest(config.SwaggerConfig{Enabled: true}, "203.0.113.9:1234")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("exact ip", func(t *testing.T) {
		cfg := config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.1.10"}}
		assert.Equal(t, http.StatusOK, swaggerRequest(cfg, "192.168.1.10:5000").Code)
		assert.Equal(t, http.StatusForbidden, swaggerRequest(cfg, "192.168.1.11:5000").Code)
	})

	t.Run("cidr range", func(t *testing.T) {
		cfg := config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8", "not-an-ip"}}
		assert.Equal(t, http.StatusOK, swaggerRequest(cfg, "10.20.30.40:5000").Code)
		assert.Equal(t, http.StatusForbidden, swaggerRequest(cfg, "172.16.0.1:5000").Code)
	})
}

func TestIsIPAllowed(t *testing.T) {
	_, network, _ := net.ParseCIDR("2001:db8::/32")
	assert.True(t, isIPAllowed(net.ParseIP("2001:db8::1"), nil, []*net.IPNet{network}))
	assert.False(t, isIPAllowed(nil, []net.IP{net.ParseIP("127.0.0.1")}, nil))
}
