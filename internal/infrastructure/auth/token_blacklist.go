package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TokenBlacklist revokes tokens before they expire
type TokenBlacklist interface {
	// Revoke blacklists a JTI for ttl (the token's remaining lifetime)
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeUser rejects every token of userID issued up to now
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

const blacklistPrefix = "pos:token:blacklist:"

// RedisTokenBlacklist stores revocations in Redis with TTLs
type RedisTokenBlacklist struct {
	client redis.UniversalClient
}

// NewRedisTokenBlacklist wraps an existing client
func NewRedisTokenBlacklist(client redis.UniversalClient) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func (b *RedisTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistPrefix+"jti:"+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistPrefix+"jti:"+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check token blacklist: %w", err)
	}
	return n > 0, nil
}

func (b *RedisTokenBlacklist) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := b.client.Set(ctx, blacklistPrefix+"user:"+userID, time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	v, err := b.client.Get(ctx, blacklistPrefix+"user:"+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user revocation: %w", err)
	}
	cutoff, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse revocation time: %w", err)
	}
	return issuedAt.Unix() <= cutoff, nil
}

// InMemoryTokenBlacklist is a single-process blacklist for tests and as
// the fallback when Redis is unreachable
type InMemoryTokenBlacklist struct {
	mu    sync.Mutex
	jtis  map[string]time.Time
	users map[string]time.Time
	now   func() time.Time
}

// NewInMemoryTokenBlacklist creates an empty blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		jtis:  make(map[string]time.Time),
		users: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (b *InMemoryTokenBlacklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = b.now().Add(ttl)
	return nil
}

func (b *InMemoryTokenBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.jtis[jti]
	if !ok {
		return false, nil
	}
	if b.now().After(exp) {
		delete(b.jtis, jti)
		return false, nil
	}
	return true, nil
}

func (b *InMemoryTokenBlacklist) RevokeUser(_ context.Context, userID string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[userID] = b.now()
	return nil
}

func (b *InMemoryTokenBlacklist) IsUserRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff, ok := b.users[userID]
	if !ok {
		return false, nil
	}
	return !issuedAt.After(cutoff), nil
}

// FallbackTokenBlacklist writes to both stores and reads Redis first,
// answering from memory while Redis errors
type FallbackTokenBlacklist struct {
	primary  TokenBlacklist
	fallback *InMemoryTokenBlacklist
	logger   *zap.Logger
}

// NewFallbackTokenBlacklist pairs primary with an in-memory fallback. A nil
// primary means in-memory only.
func NewFallbackTokenBlacklist(primary TokenBlacklist, logger *zap.Logger) *FallbackTokenBlacklist {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackTokenBlacklist{primary: primary, fallback: NewInMemoryTokenBlacklist(), logger: logger}
}

func (b *FallbackTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	_ = b.fallback.Revoke(ctx, jti, ttl)
	if b.primary == nil {
		return nil
	}
	if err := b.primary.Revoke(ctx, jti, ttl); err != nil {
		b.logger.Warn("token blacklist primary unavailable, kept in memory", zap.Error(err))
	}
	return nil
}

func (b *FallbackTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if local, _ := b.fallback.IsRevoked(ctx, jti); local || b.primary == nil {
		return local, nil
	}
	revoked, err := b.primary.IsRevoked(ctx, jti)
	if err != nil {
		b.logger.Warn("token blacklist primary unavailable, using memory", zap.Error(err))
		return false, nil
	}
	return revoked, nil
}

func (b *FallbackTokenBlacklist) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	_ = b.fallback.RevokeUser(ctx, userID, ttl)
	if b.primary == nil {
		return nil
	}
	if err := b.primary.RevokeUser(ctx, userID, ttl); err != nil {
		b.logger.Warn("token blacklist primary unavailable, kept in memory", zap.Error(err))
	}
	return nil
}

func (b *FallbackTokenBlacklist) IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	if local, _ := b.fallback.IsUserRevoked(ctx, userID, issuedAt); local || b.primary == nil {
		return local, nil
	}
	revoked, err := b.primary.IsUserRevoked(ctx, userID, issuedAt)
	if err != nil {
		b.logger.Warn("token blacklist primary unavailable, using memory", zap.Error(err))
		return false, nil
	}
	return revoked, nil
}

var (
	_ TokenBlacklist = (*RedisTokenBlacklist)(nil)
	_ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
	_ TokenBlacklist = (*FallbackTokenBlacklist)(nil)
)
