package cache

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Connect returns a Redis client when Redis is enabled and reachable, or nil
// after logging why the process runs without it
func Connect(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if !cfg.Enabled {
		logger.Info("redis disabled, using in-memory stores")
		return nil
	}
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory stores; idempotency is per-instance", zap.Error(err))
		return nil
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Addr()))
	return client
}

// NewIdempotencyStore picks Redis when client is non-nil, else memory
func NewIdempotencyStore(client redis.UniversalClient, cfg config.IdempotencyConfig) shared.IdempotencyStore {
	if client != nil {
		return NewRedisIdempotencyStore(client, cfg.KeyPrefix)
	}
	return NewInMemoryIdempotencyStore(5 * time.Minute)
}
