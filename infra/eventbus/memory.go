// Package eventbus provides the transport implementations of the event
// bus: an in-memory bus for tests and local runs and a Kafka-backed bus
// for deployment.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/payproc/pkg/domain/events"
	"github.com/amirasaad/payproc/pkg/eventbus"
)

// MemoryEventBus is a synchronous in-memory implementation of the Bus
// interface. Handlers run inline on Emit, in registration order, which
// keeps flow tests deterministic. Handler errors are logged and do not
// stop delivery to the remaining handlers, mirroring the per-event
// log-and-continue policy of the real transport.
type MemoryEventBus struct {
	handlers  map[string][]eventbus.HandlerFunc
	mu        sync.RWMutex
	logger    *slog.Logger
	published []events.Event
}

// NewWithMemory creates a new in-memory event bus.
func NewWithMemory(logger *slog.Logger) *MemoryEventBus {
	return &MemoryEventBus{
		handlers: make(map[string][]eventbus.HandlerFunc),
		logger:   logger.With("bus", "memory"),
	}
}

// Register implements eventbus.Bus.
func (b *MemoryEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit implements eventbus.Bus.
func (b *MemoryEventBus) Emit(ctx context.Context, e events.Event) error {
	b.mu.RLock()
	handlers := append([]eventbus.HandlerFunc{}, b.handlers[e.Type()]...)
	b.mu.RUnlock()

	b.mu.Lock()
	b.published = append(b.published, e)
	b.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(ctx, e); err != nil {
			b.logger.Error("event handler failed",
				"event_type", e.Type(),
				"transaction_id", e.Aggregate(),
				"error", err,
			)
		}
	}
	return nil
}

// Close implements eventbus.Bus.
func (b *MemoryEventBus) Close() error { return nil }

// Published returns every event emitted so far. This is useful for testing.
func (b *MemoryEventBus) Published() []events.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]events.Event, len(b.published))
	copy(out, b.published)
	return out
}

// ClearPublished clears the recorded events. This is useful for testing.
func (b *MemoryEventBus) ClearPublished() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = nil
}

var _ eventbus.Bus = (*MemoryEventBus)(nil)
