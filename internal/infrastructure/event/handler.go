package event

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/shared"
)

// HandlerFunc adapts a function to shared.EventHandler
type HandlerFunc struct {
	name  string
	types []string
	fn    func(ctx context.Context, event shared.DomainEvent) error
}

// NewHandlerFunc creates a named handler for the given event types
func NewHandlerFunc(name string, fn func(ctx context.Context, event shared.DomainEvent) error, eventTypes ...string) *HandlerFunc {
	return &HandlerFunc{name: name, types: eventTypes, fn: fn}
}

// Handle calls the wrapped function
func (h *HandlerFunc) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.fn(ctx, event)
}

// EventTypes returns the subscribed event types
func (h *HandlerFunc) EventTypes() []string {
	return h.types
}

// Name identifies the handler in logs and idempotency keys
func (h *HandlerFunc) Name() string {
	return h.name
}

type named interface {
	Name() string
}

func handlerName(h shared.EventHandler) string {
	if n, ok := h.(named); ok {
		return n.Name()
	}
	return "anonymous"
}

var _ shared.EventHandler = (*HandlerFunc)(nil)
