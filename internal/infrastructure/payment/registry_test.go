package payment

import (
	"testing"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := &config.PaymentConfig{
		PayHere: config.PayHereConfig{Enabled: true, MerchantID: "1211149", MerchantSecret: "s", Sandbox: true},
		OnePay:  config.OnePayConfig{Enabled: false},
	}
	r, err := NewRegistryFromConfig(cfg, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, r.IsEnabled(finance.PaymentGatewayTypePayHere))
	assert.False(t, r.IsEnabled(finance.PaymentGatewayTypeOnePay))

	g, err := r.GetGateway(finance.PaymentGatewayTypePayHere)
	require.NoError(t, err)
	assert.Equal(t, finance.PaymentGatewayTypePayHere, g.GatewayType())

	_, err = r.GetGateway(finance.PaymentGatewayTypeOnePay)
	assert.ErrorIs(t, err, finance.ErrGatewayNotEnabled)

	_, err = r.GetGateway("CASH")
	assert.ErrorIs(t, err, finance.ErrPaymentInvalidGatewayType)
}

func TestNewRegistryFromConfig_Misconfigured(t *testing.T) {
	cfg := &config.PaymentConfig{OnePay: config.OnePayConfig{Enabled: true, AppID: "a"}}
	_, err := NewRegistryFromConfig(cfg, zap.NewNop())
	assert.ErrorIs(t, err, ErrOnePayMissingAppToken)
}

func TestRegistry_ListGateways(t *testing.T) {
	ph, err := NewPayHereAdapter(&PayHereConfig{MerchantID: "1", MerchantSecret: "s"})
	require.NoError(t, err)
	op, err := NewOnePayAdapter(&OnePayConfig{AppID: "a", AppToken: "t", HashSalt: "h"})
	require.NoError(t, err)

	r := NewRegistry(ph, op)
	list := r.ListGateways()
	require.Len(t, list, 2)
	assert.Equal(t, finance.PaymentGatewayTypeOnePay, list[0].GatewayType())
	assert.Equal(t, finance.PaymentGatewayTypePayHere, list[1].GatewayType())
}
