package repository_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraeventstore "github.com/amirasaad/payproc/infra/eventstore"
	"github.com/amirasaad/payproc/pkg/commands"
	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/domain/transaction"
	"github.com/amirasaad/payproc/pkg/eventstore"
	"github.com/amirasaad/payproc/pkg/repository"
)

func newAggregate(t *testing.T) *transaction.Aggregate {
	t.Helper()
	agg := transaction.New("TXN-1")
	require.NoError(t, agg.HandleCreateTransaction(commands.CreateTransaction{
		TransactionID: "TXN-1",
		UserID:        "u1",
		Amount:        100.00,
		Currency:      "USD",
		PaymentMethod: domain.MethodCreditCard,
	}))
	return agg
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := repository.NewAggregateRepository(infraeventstore.NewMemoryStore(), slog.Default())

	agg := newAggregate(t)
	require.NoError(t, repo.Save(ctx, agg))
	assert.Empty(agg.UncommittedEvents())

	loaded, err := repo.Load(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Equal(domain.StatusPending, loaded.Status)
	assert.Equal(uint64(1), loaded.Version)
	assert.Empty(loaded.UncommittedEvents())
}

func TestSaveCleanAggregateIsNoop(t *testing.T) {
	ctx := context.Background()
	store := infraeventstore.NewMemoryStore()
	repo := repository.NewAggregateRepository(store, slog.Default())

	agg := newAggregate(t)
	require.NoError(t, repo.Save(ctx, agg))
	// Second save must not append anything.
	require.NoError(t, repo.Save(ctx, agg))

	version, err := store.LastVersion(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)
}

func TestSaveStaleAggregateConflicts(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAggregateRepository(infraeventstore.NewMemoryStore(), slog.Default())

	require.NoError(t, repo.Save(ctx, newAggregate(t)))

	// A second writer still holding version 0 state loses the race.
	stale := newAggregate(t)
	err := repo.Save(ctx, stale)
	assert.ErrorIs(t, err, eventstore.ErrVersionConflict)
}

func TestLoadMissingAggregate(t *testing.T) {
	repo := repository.NewAggregateRepository(infraeventstore.NewMemoryStore(), slog.Default())
	_, err := repo.Load(context.Background(), "TXN-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveIncremental(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := repository.NewAggregateRepository(infraeventstore.NewMemoryStore(), slog.Default())

	agg := newAggregate(t)
	require.NoError(t, repo.Save(ctx, agg))

	loaded, err := repo.Load(ctx, "TXN-1")
	require.NoError(t, err)
	require.NoError(t, loaded.HandleProcessFraudCheck(commands.ProcessFraudCheck{
		TransactionID: "TXN-1", Passed: true, RiskScore: 0.2,
	}))
	require.NoError(t, repo.Save(ctx, loaded))

	reloaded, err := repo.Load(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Equal(domain.StatusFraudCheckPassed, reloaded.Status)
	assert.Equal(uint64(2), reloaded.Version)
}
