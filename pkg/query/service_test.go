package query_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infracache "github.com/amirasaad/payproc/infra/cache"
	infratransaction "github.com/amirasaad/payproc/infra/repository/transaction"
	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/dto"
	"github.com/amirasaad/payproc/pkg/query"
)

func seed(t *testing.T, repo *infratransaction.MemoryRepository, rows ...dto.TransactionRead) {
	t.Helper()
	for _, row := range rows {
		require.NoError(t, repo.Upsert(context.Background(), row))
	}
}

func row(id, user string, status domain.TransactionStatus, amount float64, createdAt time.Time) dto.TransactionRead {
	return dto.TransactionRead{
		TransactionID: id,
		UserID:        user,
		Amount:        amount,
		Currency:      "USD",
		PaymentMethod: domain.MethodCreditCard,
		Status:        status,
		CreatedAt:     createdAt,
	}
}

func TestGetByID(t *testing.T) {
	repo := infratransaction.NewMemory()
	svc := query.New(repo, nil, time.Minute, slog.Default())
	now := time.Now().UTC()
	seed(t, repo, row("TXN-1", "u1", domain.StatusPending, 100, now))

	got, err := svc.GetByID(context.Background(), "TXN-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = svc.GetByID(context.Background(), "TXN-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByIDUsesCache(t *testing.T) {
	assert := assert.New(t)
	repo := infratransaction.NewMemory()
	cache := infracache.NewMemoryCache()
	svc := query.New(repo, cache, time.Minute, slog.Default())
	ctx := context.Background()
	now := time.Now().UTC()
	seed(t, repo, row("TXN-1", "u1", domain.StatusPending, 100, now))

	// First read populates the cache.
	_, err := svc.GetByID(ctx, "TXN-1")
	require.NoError(t, err)
	cached, err := cache.Get("TXN-1")
	require.NoError(t, err)
	require.NotNil(t, cached)

	// A stale cached row is served until invalidated.
	stale := *cached
	stale.Status = domain.StatusCompleted
	require.NoError(t, cache.Set("TXN-1", &stale, time.Minute))
	got, err := svc.GetByID(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Equal(domain.StatusCompleted, got.Status)
}

func TestListActiveByUser(t *testing.T) {
	repo := infratransaction.NewMemory()
	svc := query.New(repo, nil, time.Minute, slog.Default())
	now := time.Now().UTC()
	seed(t, repo,
		row("TXN-1", "u1", domain.StatusPending, 10, now.Add(-3*time.Hour)),
		row("TXN-2", "u1", domain.StatusFraudCheckPassed, 20, now.Add(-2*time.Hour)),
		row("TXN-3", "u1", domain.StatusCompleted, 30, now.Add(-1*time.Hour)),
		row("TXN-4", "u2", domain.StatusPending, 40, now),
	)

	active, err := svc.ListActiveByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	// Newest first.
	assert.Equal(t, "TXN-2", active[0].TransactionID)
	assert.Equal(t, "TXN-1", active[1].TransactionID)
}

func TestListByDateRange(t *testing.T) {
	repo := infratransaction.NewMemory()
	svc := query.New(repo, nil, time.Minute, slog.Default())
	now := time.Now().UTC()
	seed(t, repo,
		row("TXN-1", "u1", domain.StatusCompleted, 10, now.Add(-48*time.Hour)),
		row("TXN-2", "u1", domain.StatusCompleted, 20, now.Add(-2*time.Hour)),
	)

	got, err := svc.ListByDateRange(context.Background(), now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "TXN-2", got[0].TransactionID)
}

func TestSummary(t *testing.T) {
	assert := assert.New(t)
	repo := infratransaction.NewMemory()
	svc := query.New(repo, nil, time.Minute, slog.Default())
	now := time.Now().UTC()
	seed(t, repo,
		row("TXN-1", "u1", domain.StatusCompleted, 100, now.Add(-1*time.Hour)),
		row("TXN-2", "u1", domain.StatusCompleted, 50, now.Add(-72*time.Hour)),
		row("TXN-3", "u2", domain.StatusFailed, 30, now),
		row("TXN-4", "u2", domain.StatusFraudCheckFailed, 25, now),
		row("TXN-5", "u3", domain.StatusPending, 10, now),
		row("TXN-6", "u3", domain.StatusPaymentProcessing, 15, now),
	)

	summary, err := svc.Summary(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(int64(6), summary.TotalCount)
	assert.Equal(int64(2), summary.CompletedCount)
	assert.Equal(int64(2), summary.FailedCount)
	assert.Equal(int64(2), summary.PendingCount)
	// Only the completion inside the cutoff window counts.
	assert.Equal(100.0, summary.CompletedAmount)
}
