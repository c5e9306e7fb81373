package payment

import (
	"fmt"
	"sort"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Registry holds the gateways enabled in configuration
type Registry struct {
	gateways map[finance.PaymentGatewayType]finance.PaymentGateway
}

var _ finance.PaymentGatewayRegistry = (*Registry)(nil)

// NewRegistry creates a registry from explicit gateways
func NewRegistry(gateways ...finance.PaymentGateway) *Registry {
	r := &Registry{gateways: make(map[finance.PaymentGatewayType]finance.PaymentGateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.GatewayType()] = g
	}
	return r
}

// NewRegistryFromConfig builds every enabled gateway. A misconfigured
// enabled gateway is an error so the server fails at startup.
func NewRegistryFromConfig(cfg *config.PaymentConfig, logger *zap.Logger) (*Registry, error) {
	r := NewRegistry()
	if cfg.PayHere.Enabled {
		g, err := NewPayHereAdapter(PayHereConfigFrom(cfg.PayHere))
		if err != nil {
			return nil, fmt.Errorf("payhere: %w", err)
		}
		r.gateways[g.GatewayType()] = g
		logger.Info("Payment gateway enabled", zap.String("gateway", "PAYHERE"), zap.Bool("sandbox", cfg.PayHere.Sandbox))
	}
	if cfg.OnePay.Enabled {
		g, err := NewOnePayAdapter(OnePayConfigFrom(cfg.OnePay))
		if err != nil {
			return nil, fmt.Errorf("onepay: %w", err)
		}
		r.gateways[g.GatewayType()] = g
		logger.Info("Payment gateway enabled", zap.String("gateway", "ONEPAY"))
	}
	return r, nil
}

// GetGateway returns the gateway for a type
func (r *Registry) GetGateway(gatewayType finance.PaymentGatewayType) (finance.PaymentGateway, error) {
	if !gatewayType.IsValid() {
		return nil, finance.ErrPaymentInvalidGatewayType
	}
	g, ok := r.gateways[gatewayType]
	if !ok {
		return nil, finance.ErrGatewayNotEnabled
	}
	return g, nil
}

// ListGateways returns the enabled gateways sorted by type
func (r *Registry) ListGateways() []finance.PaymentGateway {
	out := make([]finance.PaymentGateway, 0, len(r.gateways))
	for _, g := range r.gateways {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GatewayType() < out[j].GatewayType() })
	return out
}

// IsEnabled reports whether a gateway is configured
func (r *Registry) IsEnabled(gatewayType finance.PaymentGatewayType) bool {
	_, ok := r.gateways[gatewayType]
	return ok
}
