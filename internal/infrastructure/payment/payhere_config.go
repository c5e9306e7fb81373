package payment

import (
	"errors"

	"github.com/cloudpos/backend/internal/infrastructure/config"
)

const (
	payHereLiveURL    = "https://www.payhere.lk/pay/checkout"
	payHereSandboxURL = "https://sandbox.payhere.lk/pay/checkout"
)

// PayHereConfig contains merchant credentials for the PayHere checkout
type PayHereConfig struct {
	// MerchantID is shown in the PayHere merchant portal
	MerchantID string
	// MerchantSecret is issued per domain or app
	MerchantSecret string
	// IsSandbox switches the checkout URL
	IsSandbox bool
}

var (
	ErrPayHereMissingMerchantID     = errors.New("payhere: missing merchant ID")
	ErrPayHereMissingMerchantSecret = errors.New("payhere: missing merchant secret")
)

// PayHereConfigFrom maps application configuration
func PayHereConfigFrom(cfg config.PayHereConfig) *PayHereConfig {
	return &PayHereConfig{
		MerchantID:     cfg.MerchantID,
		MerchantSecret: cfg.MerchantSecret,
		IsSandbox:      cfg.Sandbox,
	}
}

// Validate validates the configuration
func (c *PayHereConfig) Validate() error {
	if c.MerchantID == "" {
		return ErrPayHereMissingMerchantID
	}
	if c.MerchantSecret == "" {
		return ErrPayHereMissingMerchantSecret
	}
	return nil
}

// CheckoutURL returns the hosted checkout endpoint
func (c *PayHereConfig) CheckoutURL() string {
	if c.IsSandbox {
		return payHereSandboxURL
	}
	return payHereLiveURL
}
