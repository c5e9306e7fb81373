package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that were already processed. It backs both
// event handler deduplication and the HTTP Idempotency-Key header.
type IdempotencyStore interface {
	// MarkProcessed atomically reserves key for ttl.
	// Returns true if the key was newly reserved, false if it already existed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key is currently reserved
	IsProcessed(ctx context.Context, key string) (bool, error)

	// SaveResult stores an opaque result payload under an already reserved key
	SaveResult(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// GetResult returns the stored payload, or nil when none was saved yet
	GetResult(ctx context.Context, key string) ([]byte, error)

	// Release drops a reservation so the key can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a processed key is remembered. Default: 24 hours
	TTL time.Duration
	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
