package eventstore

import "time"

// DomainEvent is the persisted row of the append-only event log. The
// composite unique index on (aggregate_id, sequence_number) backs the
// optimistic-concurrency check at the database level.
type DomainEvent struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	AggregateID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_aggregate_sequence,priority:1;index"`
	SequenceNumber uint64    `gorm:"not null;uniqueIndex:idx_aggregate_sequence,priority:2"`
	EventType      string    `gorm:"type:varchar(64);not null"`
	Payload        []byte    `gorm:"type:jsonb;not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName specifies the table name for the DomainEvent model.
func (DomainEvent) TableName() string {
	return "domain_events"
}
