package transaction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/dto"
	repo "github.com/amirasaad/payproc/pkg/repository/transaction"
)

// MemoryRepository is an in-memory read-model repository used in tests and
// in deployments without a database configured.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]dto.TransactionRead
}

// NewMemory creates an empty in-memory read repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{rows: make(map[string]dto.TransactionRead)}
}

// Upsert implements transaction.Repository.
func (m *MemoryRepository) Upsert(ctx context.Context, row dto.TransactionRead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.TransactionID] = row
	return nil
}

// Update implements transaction.Repository.
func (m *MemoryRepository) Update(
	ctx context.Context,
	transactionID string,
	update dto.TransactionUpdate,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[transactionID]
	if !ok {
		return domain.ErrNotFound
	}
	if update.Status != nil {
		row.Status = *update.Status
	}
	if update.CompletedAt != nil {
		row.CompletedAt = update.CompletedAt
	}
	if update.RiskScore != nil {
		row.RiskScore = update.RiskScore
	}
	if update.FraudReason != nil {
		row.FraudReason = update.FraudReason
	}
	if update.GatewayTransactionID != nil {
		row.GatewayTransactionID = update.GatewayTransactionID
	}
	m.rows[transactionID] = row
	return nil
}

// Get implements transaction.Repository.
func (m *MemoryRepository) Get(ctx context.Context, transactionID string) (*dto.TransactionRead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &row, nil
}

// ListByUser implements transaction.Repository.
func (m *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]dto.TransactionRead, error) {
	return m.list(func(row dto.TransactionRead) bool {
		return row.UserID == userID
	}), nil
}

// ListByUserAndStatuses implements transaction.Repository.
func (m *MemoryRepository) ListByUserAndStatuses(
	ctx context.Context,
	userID string,
	statuses []domain.TransactionStatus,
) ([]dto.TransactionRead, error) {
	wanted := make(map[domain.TransactionStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	return m.list(func(row dto.TransactionRead) bool {
		return row.UserID == userID && wanted[row.Status]
	}), nil
}

// ListByDateRange implements transaction.Repository.
func (m *MemoryRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]dto.TransactionRead, error) {
	return m.list(func(row dto.TransactionRead) bool {
		return !row.CreatedAt.Before(from) && !row.CreatedAt.After(to)
	}), nil
}

// CountByStatus implements transaction.Repository.
func (m *MemoryRepository) CountByStatus(ctx context.Context, status domain.TransactionStatus) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, row := range m.rows {
		if row.Status == status {
			n++
		}
	}
	return n, nil
}

// SumAmountByStatusSince implements transaction.Repository.
func (m *MemoryRepository) SumAmountByStatusSince(
	ctx context.Context,
	status domain.TransactionStatus,
	since time.Time,
) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum float64
	for _, row := range m.rows {
		if row.Status == status && !row.CreatedAt.Before(since) {
			sum += row.Amount
		}
	}
	return sum, nil
}

func (m *MemoryRepository) list(match func(dto.TransactionRead) bool) []dto.TransactionRead {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dto.TransactionRead
	for _, row := range m.rows {
		if match(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

var _ repo.Repository = (*MemoryRepository)(nil)
