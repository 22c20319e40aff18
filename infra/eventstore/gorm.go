// Package eventstore provides the durable implementations of the
// append-only event log.
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/payproc/pkg/domain/events"
	"github.com/amirasaad/payproc/pkg/eventstore"
	"gorm.io/gorm"
)

// GormStore persists events in Postgres through GORM.
type GormStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewGormStore creates a Postgres-backed event store.
func NewGormStore(db *gorm.DB, logger *slog.Logger) *GormStore {
	return &GormStore{db: db, logger: logger.With("store", "gorm")}
}

// Append implements eventstore.Store. The version check and the inserts
// run in one database transaction; the unique index on
// (aggregate_id, sequence_number) catches writers that race past the check.
func (s *GormStore) Append(ctx context.Context, aggregateID string, evs []events.Event, expectedVersion uint64) error {
	if len(evs) == 0 {
		return nil
	}

	rows := make([]DomainEvent, 0, len(evs))
	for i, e := range evs {
		eventType, payload, err := eventstore.Encode(e)
		if err != nil {
			return err
		}
		rows = append(rows, DomainEvent{
			AggregateID:    aggregateID,
			SequenceNumber: expectedVersion + uint64(i) + 1,
			EventType:      eventType,
			Payload:        payload,
			CreatedAt:      e.OccurredAt(),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current uint64
		if err := tx.Model(&DomainEvent{}).
			Where("aggregate_id = ?", aggregateID).
			Select("COALESCE(MAX(sequence_number), 0)").
			Scan(&current).Error; err != nil {
			return fmt.Errorf("event store: read version for %s: %w", aggregateID, err)
		}
		if current != expectedVersion {
			return fmt.Errorf(
				"%w: aggregate %s expected version %d, current %d",
				eventstore.ErrVersionConflict, aggregateID, expectedVersion, current,
			)
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent writer slipped in between the check and the
			// insert; the unique index turns that race into a conflict.
			return fmt.Errorf(
				"%w: aggregate %s lost append race at version %d",
				eventstore.ErrVersionConflict, aggregateID, expectedVersion,
			)
		}
		return err
	}

	s.logger.Debug("appended events",
		"aggregate_id", aggregateID,
		"count", len(evs),
		"expected_version", expectedVersion,
	)
	return nil
}

// Load implements eventstore.Store.
func (s *GormStore) Load(ctx context.Context, aggregateID string) ([]events.Event, error) {
	var rows []DomainEvent
	if err := s.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("sequence_number ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("event store: load %s: %w", aggregateID, err)
	}

	history := make([]events.Event, 0, len(rows))
	for _, row := range rows {
		e, err := eventstore.Decode(row.EventType, row.Payload)
		if err != nil {
			return nil, err
		}
		history = append(history, e)
	}
	return history, nil
}

// LastVersion implements eventstore.Store.
func (s *GormStore) LastVersion(ctx context.Context, aggregateID string) (uint64, error) {
	var current uint64
	if err := s.db.WithContext(ctx).Model(&DomainEvent{}).
		Where("aggregate_id = ?", aggregateID).
		Select("COALESCE(MAX(sequence_number), 0)").
		Scan(&current).Error; err != nil {
		return 0, fmt.Errorf("event store: last version for %s: %w", aggregateID, err)
	}
	return current, nil
}

var _ eventstore.Store = (*GormStore)(nil)
