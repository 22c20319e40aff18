package eventstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/amirasaad/payproc/pkg/domain/events"
	"github.com/amirasaad/payproc/pkg/eventstore"
)

type storedEvent struct {
	eventType string
	payload   []byte
}

// MemoryStore is an in-memory event log for tests and local runs. Events
// go through the same codec as the durable store so serialization fidelity
// is exercised on every append and load.
type MemoryStore struct {
	mu      sync.RWMutex
	streams map[string][]storedEvent
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{streams: make(map[string][]storedEvent)}
}

// Append implements eventstore.Store.
func (s *MemoryStore) Append(ctx context.Context, aggregateID string, evs []events.Event, expectedVersion uint64) error {
	if len(evs) == 0 {
		return nil
	}

	encoded := make([]storedEvent, 0, len(evs))
	for _, e := range evs {
		eventType, payload, err := eventstore.Encode(e)
		if err != nil {
			return err
		}
		encoded = append(encoded, storedEvent{eventType: eventType, payload: payload})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current := uint64(len(s.streams[aggregateID]))
	if current != expectedVersion {
		return fmt.Errorf(
			"%w: aggregate %s expected version %d, current %d",
			eventstore.ErrVersionConflict, aggregateID, expectedVersion, current,
		)
	}
	s.streams[aggregateID] = append(s.streams[aggregateID], encoded...)
	return nil
}

// Load implements eventstore.Store.
func (s *MemoryStore) Load(ctx context.Context, aggregateID string) ([]events.Event, error) {
	s.mu.RLock()
	stream := make([]storedEvent, len(s.streams[aggregateID]))
	copy(stream, s.streams[aggregateID])
	s.mu.RUnlock()

	history := make([]events.Event, 0, len(stream))
	for _, row := range stream {
		e, err := eventstore.Decode(row.eventType, row.payload)
		if err != nil {
			return nil, err
		}
		history = append(history, e)
	}
	return history, nil
}

// LastVersion implements eventstore.Store.
func (s *MemoryStore) LastVersion(ctx context.Context, aggregateID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.streams[aggregateID])), nil
}

var _ eventstore.Store = (*MemoryStore)(nil)
