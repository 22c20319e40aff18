// Package transaction defines the read-model repository contract for the
// transaction projection. Implementations live under
// infra/repository/transaction.
package transaction

import (
	"context"
	"time"

	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/dto"
)

// Repository is the CQRS-style store for transaction read rows. Writes are
// idempotent: upserting or updating with the same values twice leaves the
// row identical to doing it once.
type Repository interface {
	// Upsert creates the row or overwrites it with the given values.
	Upsert(ctx context.Context, row dto.TransactionRead) error

	// Update applies a partial last-write-wins update. It fails with
	// domain.ErrNotFound when the row does not exist yet, letting callers
	// defer or drop the update.
	Update(ctx context.Context, transactionID string, update dto.TransactionUpdate) error

	// Get returns the row, or domain.ErrNotFound.
	Get(ctx context.Context, transactionID string) (*dto.TransactionRead, error)

	// ListByUser returns all rows for a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]dto.TransactionRead, error)

	// ListByUserAndStatuses returns the user's rows in any of the given
	// statuses, newest first.
	ListByUserAndStatuses(ctx context.Context, userID string, statuses []domain.TransactionStatus) ([]dto.TransactionRead, error)

	// ListByDateRange returns rows created within [from, to].
	ListByDateRange(ctx context.Context, from, to time.Time) ([]dto.TransactionRead, error)

	// CountByStatus returns the number of rows in the given status.
	CountByStatus(ctx context.Context, status domain.TransactionStatus) (int64, error)

	// SumAmountByStatusSince sums the amount of rows in the given status
	// created at or after the cutoff.
	SumAmountByStatusSince(ctx context.Context, status domain.TransactionStatus, since time.Time) (float64, error)
}
