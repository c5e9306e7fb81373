package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/interfaces/http/dto"
)

const headerIdempotencyKey = "Idempotency-Key"

var (
	// ErrUnreachable wraps transport failures: DNS, refused connections, timeouts
	ErrUnreachable = errors.New("offline: server unreachable")
	// ErrUnauthorized means the stored token was rejected and the agent must log in again
	ErrUnauthorized = errors.New("offline: token rejected, log in again")
)

// TokenSource supplies the bearer token for API calls
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Response is a raw API response
type Response struct {
	StatusCode int
	Body       []byte
}

// APIError is a non-2xx response decoded from the standard error envelope
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("offline: server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("offline: server returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

// ClientConfig configures Client
type ClientConfig struct {
	BaseURL    string
	Token      TokenSource
	Timeout    time.Duration
	HTTPClient *http.Client
	UserAgent  string
}

// Client talks to the POS API
type Client struct {
	baseURL   string
	token     TokenSource
	http      *http.Client
	userAgent string
}

// NewClient validates cfg and builds a Client
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "cloudpos-posagent/1.0"
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		http:      hc,
		userAgent: cfg.UserAgent,
	}, nil
}

// Do sends one request. A transport failure is returned wrapped in
// ErrUnreachable; any HTTP status is returned as a Response.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, idempotencyKey string) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(headerIdempotencyKey, idempotencyKey)
	}
	if c.token != nil {
		tok, err := c.token.Token(ctx)
		if err != nil {
			return nil, err
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// Ping reports whether the server answers its health check
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.Do(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %d", ErrUnreachable, resp.StatusCode)
	}
	return nil
}

// getJSON fetches path and decodes the data field of the envelope into out
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return fmt.Errorf("offline: malformed response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func apiError(resp *Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode}
	var env envelope
	if json.Unmarshal(resp.Body, &env) == nil && env.Error != nil {
		e.Code = env.Error.Code
		e.Message = env.Error.Message
	}
	return e
}

// outcome is what a response means for a queued operation
type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeDead
	outcomeStop
)

// classify maps a send result onto the queue's replay rules. 401 and 402 need
// a person (log in, pay the subscription) but the write itself is fine, so it
// stays.
func classify(resp *Response, err error) outcome {
	if err != nil {
		return outcomeRetry
	}
	switch code := resp.StatusCode; {
	case code >= 200 && code <= 299:
		return outcomeDone
	case code == http.StatusConflict:
		return classifyConflict(apiError(resp).Code)
	case code == http.StatusUnauthorized, code == http.StatusPaymentRequired:
		return outcomeStop
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return outcomeRetry
	default:
		return outcomeDead
	}
}

// classifyConflict splits 409s by envelope code. DUPLICATE_REQUEST means the
// first attempt under the same key is still running on the server and may yet
// fail, so the op has to stay queued until it gets a final answer.
func classifyConflict(code string) outcome {
	switch {
	case code == dto.ErrCodeDuplicateRequest, code == "CONCURRENCY_CONFLICT", code == "OPTIMISTIC_LOCK_ERROR":
		return outcomeRetry
	case code == dto.ErrCodeAlreadyExists, strings.HasSuffix(code, "_EXISTS"), strings.HasPrefix(code, "ALREADY_"):
		return outcomeDone
	default:
		return outcomeDead
	}
}
