// Package testutil holds helpers shared by the POS integration tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cloudpos/backend/internal/domain/shared"
)

// EventRecorder is a shared.EventHandler that keeps every event it receives.
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewEventRecorder subscribes to eventTypes, or to everything when none are given.
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, event)
	return r.err
}

// Handled returns a copy of the recorded events.
func (r *EventRecorder) Handled() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.DomainEvent, len(r.handled))
	copy(out, r.handled)
	return out
}

// OfType returns the recorded events with the given type.
func (r *EventRecorder) OfType(eventType string) []shared.DomainEvent {
	var out []shared.DomainEvent
	for _, ev := range r.Handled() {
		if ev.EventType() == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (r *EventRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handled)
}

// FailWith makes Handle return err after recording.
func (r *EventRecorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// StubEvent is a bare domain event for bus plumbing tests.
type StubEvent struct {
	shared.BaseDomainEvent
}

func NewStubEvent(eventType string, tenantID uuid.UUID) *StubEvent {
	return &StubEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Stub", uuid.New(), tenantID),
	}
}

// Eventually polls condition until it holds or timeout elapses.
func Eventually(t *testing.T, condition func() bool, timeout time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}

// WaitForEvents waits until r has recorded at least n events of eventType.
func WaitForEvents(t *testing.T, r *EventRecorder, eventType string, n int) bool {
	t.Helper()
	return Eventually(t, func() bool { return len(r.OfType(eventType)) >= n }, 2*time.Second)
}
