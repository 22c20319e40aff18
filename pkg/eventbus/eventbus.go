// Package eventbus defines the publish/subscribe contract the core uses to
// exchange domain events. The transport guarantees at-least-once delivery
// ordered per partition key; handlers must be idempotent under redelivery.
package eventbus

import (
	"context"

	"github.com/amirasaad/payproc/pkg/domain/events"
)

// HandlerFunc processes one delivered event. Returning an error signals
// the transport that processing failed and the event must be redelivered
// rather than acknowledged.
type HandlerFunc func(ctx context.Context, e events.Event) error

// Bus publishes and consumes domain events. Publishes are keyed by the
// event's transaction id so all events of one transaction are consumed in
// emission order.
type Bus interface {
	// Register subscribes a handler to an event type.
	Register(eventType string, handler HandlerFunc)
	// Emit publishes the event to its topic.
	Emit(ctx context.Context, e events.Event) error
	// Close stops consumers and releases transport resources.
	Close() error
}
