// Package query serves the read side: lookups and aggregations over the
// transaction read model, with a cache in front of single-row reads.
// Results reflect whatever the projector has applied so far and may trail
// the event log.
package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirasaad/payproc/pkg/cache"
	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/dto"
	repotransaction "github.com/amirasaad/payproc/pkg/repository/transaction"
)

// activeStatuses are the non-terminal states a transaction moves through.
var activeStatuses = []domain.TransactionStatus{
	domain.StatusPending,
	domain.StatusFraudCheckPassed,
	domain.StatusPaymentProcessing,
}

// Service answers queries against the transaction read model.
type Service struct {
	repo     repotransaction.Repository
	cache    cache.TransactionCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// New creates a query Service. cache may be nil to disable caching.
func New(
	repo repotransaction.Repository,
	c cache.TransactionCache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{
		repo:     repo,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger.With("component", "query"),
	}
}

// GetByID returns one transaction's read-model row, consulting the cache
// first. A cache failure falls through to the repository.
func (s *Service) GetByID(ctx context.Context, transactionID string) (*dto.TransactionRead, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(transactionID)
		if err != nil {
			s.logger.Warn("cache read failed, falling back to repository",
				"transaction_id", transactionID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	txn, err := s.repo.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(transactionID, txn, s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed",
				"transaction_id", transactionID, "error", err)
		}
	}
	return txn, nil
}

// ListByUser returns all of a user's transactions, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]dto.TransactionRead, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListActiveByUser returns a user's in-flight transactions: those still
// pending, cleared by fraud check, or mid payment processing.
func (s *Service) ListActiveByUser(ctx context.Context, userID string) ([]dto.TransactionRead, error) {
	return s.repo.ListByUserAndStatuses(ctx, userID, activeStatuses)
}

// ListByDateRange returns transactions created between from and to
// inclusive, newest first.
func (s *Service) ListByDateRange(ctx context.Context, from, to time.Time) ([]dto.TransactionRead, error) {
	return s.repo.ListByDateRange(ctx, from, to)
}

// Summary aggregates per-status counts and the completed volume since
// cutoff. It reads the repository directly; summaries are not cached.
func (s *Service) Summary(ctx context.Context, cutoff time.Time) (*dto.TransactionSummary, error) {
	summary := &dto.TransactionSummary{}

	count := func(statuses ...domain.TransactionStatus) (int64, error) {
		var total int64
		for _, status := range statuses {
			n, err := s.repo.CountByStatus(ctx, status)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	}

	var err error
	if summary.CompletedCount, err = count(domain.StatusCompleted); err != nil {
		return nil, err
	}
	if summary.FailedCount, err = count(domain.StatusFailed, domain.StatusFraudCheckFailed); err != nil {
		return nil, err
	}
	if summary.PendingCount, err = count(activeStatuses...); err != nil {
		return nil, err
	}
	summary.TotalCount = summary.CompletedCount + summary.FailedCount + summary.PendingCount

	if summary.CompletedAmount, err = s.repo.SumAmountByStatusSince(ctx, domain.StatusCompleted, cutoff); err != nil {
		return nil, err
	}
	return summary, nil
}
