package payment

import (
	"errors"
	"strings"

	"github.com/cloudpos/backend/internal/infrastructure/config"
)

const onePayDefaultBaseURL = "https://merchant-api-live-v2.onepay.lk/api/ipg/gateway"

// OnePayConfig contains OnePay app credentials
type OnePayConfig struct {
	AppID string
	// AppToken authorizes API calls and signs callbacks
	AppToken string
	// HashSalt is mixed into the request hash
	HashSalt string
	BaseURL  string
}

var (
	ErrOnePayMissingAppID    = errors.New("onepay: missing app ID")
	ErrOnePayMissingAppToken = errors.New("onepay: missing app token")
	ErrOnePayMissingHashSalt = errors.New("onepay: missing hash salt")
)

// OnePayConfigFrom maps application configuration
func OnePayConfigFrom(cfg config.OnePayConfig) *OnePayConfig {
	return &OnePayConfig{
		AppID:    cfg.AppID,
		AppToken: cfg.AppToken,
		HashSalt: cfg.HashSalt,
		BaseURL:  cfg.BaseURL,
	}
}

// Validate validates the configuration
func (c *OnePayConfig) Validate() error {
	if c.AppID == "" {
		return ErrOnePayMissingAppID
	}
	if c.AppToken == "" {
		return ErrOnePayMissingAppToken
	}
	if c.HashSalt == "" {
		return ErrOnePayMissingHashSalt
	}
	return nil
}

func (c *OnePayConfig) apiBase() string {
	if c.BaseURL == "" {
		return onePayDefaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}
