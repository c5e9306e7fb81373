// Package sms delivers text messages through an HTTP SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloudpos/backend/internal/domain/notification"
	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Driver names accepted in configuration
const (
	DriverHTTP = "http"
	DriverLog  = "log"
)

// ErrGatewayRejected is returned when the gateway answers with an error status
var ErrGatewayRejected = errors.New("sms gateway rejected message")

var (
	_ notification.SMSSender = (*HTTPSender)(nil)
	_ notification.SMSSender = (*LogSender)(nil)
)

// New selects the driver named in configuration
func New(cfg *config.SMSConfig, logger *zap.Logger) (notification.SMSSender, error) {
	if cfg == nil {
		return nil, errors.New("sms configuration is required")
	}
	switch cfg.Driver {
	case DriverHTTP:
		return NewHTTPSender(cfg, logger)
	case DriverLog, "":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown sms driver %q", cfg.Driver)
	}
}

type sendRequest struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	SenderID string `json:"sender_id,omitempty"`
}

type sendResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// HTTPSender posts JSON to the gateway with the API key in a header
type HTTPSender struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPSender creates the gateway client
func NewHTTPSender(cfg *config.SMSConfig, logger *zap.Logger) (*HTTPSender, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("sms endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("sms api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSender{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Send delivers one message and returns the gateway's message id
func (s *HTTPSender) Send(ctx context.Context, to, body, senderID string) (string, error) {
	payload, err := json.Marshal(sendRequest{To: to, Message: body, SenderID: senderID})
	if err != nil {
		return "", fmt.Errorf("sms: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("sms: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms: gateway unavailable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("sms: failed to read response: %w", err)
	}

	var parsed sendResponse
	_ = json.Unmarshal(respBody, &parsed)

	if resp.StatusCode >= 400 || parsed.Status == "error" {
		msg := parsed.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		s.logger.Warn("SMS gateway rejected message", zap.String("to", to), zap.String("error", msg))
		return "", fmt.Errorf("%w: %s", ErrGatewayRejected, msg)
	}

	return parsed.MessageID, nil
}

// LogSender writes messages to the log instead of sending them
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates the development driver
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message and returns a generated reference
func (s *LogSender) Send(ctx context.Context, to, body, senderID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := "log-" + uuid.NewString()
	s.logger.Info("SMS (log driver)",
		zap.String("to", to),
		zap.String("sender_id", senderID),
		zap.String("body", body),
		zap.String("ref", ref),
	)
	return ref, nil
}
