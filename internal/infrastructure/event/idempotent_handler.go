package event

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotentHandler processes each (handler, event) pair at most once.
// The key is released when the wrapped handler fails so a redelivery can retry.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
}

// IdempotentHandlerOption is a functional option for IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets the idempotency configuration
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// NewIdempotentHandler wraps handler with deduplication
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the wrapped handler's event types
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Name returns the wrapped handler's name
func (h *IdempotentHandler) Name() string {
	return handlerName(h.handler)
}

// Handle reserves the key, runs the handler and releases the key on failure
func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	if !h.config.Enabled || h.store == nil {
		return h.handler.Handle(ctx, ev)
	}

	key := "event:" + h.Name() + ":" + ev.EventID().String()
	isNew, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		// a store outage should not drop events
		h.logger.Warn("idempotency check failed, processing anyway",
			zap.String("key", key),
			zap.Error(err),
		)
	case !isNew:
		h.logger.Debug("duplicate event skipped",
			zap.String("key", key),
			zap.String("event_type", ev.EventType()),
		)
		return nil
	}

	if err := h.handler.Handle(ctx, ev); err != nil {
		if relErr := h.store.Release(ctx, key); relErr != nil {
			h.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		return err
	}
	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
