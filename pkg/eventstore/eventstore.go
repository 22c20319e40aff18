// Package eventstore defines the append-only event log contract and the
// wire codec shared by its implementations.
package eventstore

import (
	"context"
	"errors"

	"github.com/amirasaad/payproc/pkg/domain/events"
)

// Store errors
var (
	// ErrVersionConflict is returned when expectedVersion does not match
	// the stored version. The append left the log unchanged; callers
	// reload and retry or surface the conflict.
	ErrVersionConflict = errors.New("event store: version conflict")
	// ErrSerialization is returned when a persisted event cannot be
	// decoded. It is fatal for the aggregate: skipping an event would
	// break the version/state invariant.
	ErrSerialization = errors.New("event store: serialization error")
)

// Store is the append-only per-aggregate event log. It is the single
// concurrency-control point in the system: Append performs a
// compare-and-append scoped to one aggregate id.
type Store interface {
	// Append atomically verifies that the aggregate's current version
	// equals expectedVersion and inserts the events with sequence numbers
	// expectedVersion+1..expectedVersion+len(events), all or nothing.
	// A mismatch fails with ErrVersionConflict and no partial write.
	Append(ctx context.Context, aggregateID string, evs []events.Event, expectedVersion uint64) error

	// Load returns the aggregate's full history in ascending sequence
	// order. An empty result means the aggregate does not exist.
	Load(ctx context.Context, aggregateID string) ([]events.Event, error)

	// LastVersion returns the current max sequence number, or zero when
	// no events exist.
	LastVersion(ctx context.Context, aggregateID string) (uint64, error)
}
