// Package repository bridges the transaction aggregate's in-memory
// lifecycle to the durable event log. It is the only component allowed to
// touch storage on the write path; the aggregate itself never does.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/domain/transaction"
	"github.com/amirasaad/payproc/pkg/eventstore"
)

// AggregateRepository loads aggregates by replaying their history and
// saves them by appending uncommitted events.
type AggregateRepository struct {
	store  eventstore.Store
	logger *slog.Logger
}

// NewAggregateRepository creates a repository over the given event store.
func NewAggregateRepository(store eventstore.Store, logger *slog.Logger) *AggregateRepository {
	return &AggregateRepository{store: store, logger: logger.With("repo", "aggregate")}
}

// Save appends the aggregate's uncommitted events with an optimistic
// expected version, then clears the buffer. Saving a clean aggregate is a
// no-op.
func (r *AggregateRepository) Save(ctx context.Context, agg *transaction.Aggregate) error {
	uncommitted := agg.UncommittedEvents()
	if len(uncommitted) == 0 {
		return nil
	}

	expectedVersion := agg.Version - uint64(len(uncommitted))
	if err := r.store.Append(ctx, agg.TransactionID, uncommitted, expectedVersion); err != nil {
		return err
	}
	agg.ClearUncommittedEvents()

	r.logger.Debug("saved aggregate",
		"transaction_id", agg.TransactionID,
		"events", len(uncommitted),
		"version", agg.Version,
	)
	return nil
}

// Load reads the full history for the transaction and replays it into a
// fresh aggregate. An empty history fails with domain.ErrNotFound.
func (r *AggregateRepository) Load(ctx context.Context, transactionID string) (*transaction.Aggregate, error) {
	history, err := r.store.Load(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, transactionID)
	}

	agg := transaction.New(transactionID)
	if err := agg.LoadFromHistory(history); err != nil {
		return nil, err
	}
	return agg, nil
}
