package app_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infracache "github.com/amirasaad/payproc/infra/cache"
	infraeventbus "github.com/amirasaad/payproc/infra/eventbus"
	infraeventstore "github.com/amirasaad/payproc/infra/eventstore"
	infraprovider "github.com/amirasaad/payproc/infra/provider"
	infratransaction "github.com/amirasaad/payproc/infra/repository/transaction"
	"github.com/amirasaad/payproc/pkg/app"
	"github.com/amirasaad/payproc/pkg/commands"
	"github.com/amirasaad/payproc/pkg/config"
	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/domain/events"
	"github.com/amirasaad/payproc/pkg/provider"
)

func newTestApp(t *testing.T, gateway provider.PaymentGateway) (*app.App, *infraeventbus.MemoryEventBus, *infraeventstore.MemoryStore) {
	t.Helper()
	logger := slog.Default()
	bus := infraeventbus.NewWithMemory(logger)
	store := infraeventstore.NewMemoryStore()

	deps := &app.Deps{
		Store:    store,
		ReadRepo: infratransaction.NewMemory(),
		Cache:    infracache.NewMemoryCache(),
		Gateway:  gateway,
		EventBus: bus,
		Logger:   logger,
	}
	cfg := &config.App{
		Env:         "test",
		Cache:       &config.Cache{TTL: time.Minute},
		Coordinator: &config.Coordinator{MaxRetries: 3, RetryInitialInterval: time.Millisecond, MaxConcurrent: 25},
	}
	return app.New(deps, cfg), bus, store
}

func TestEndToEndPaymentSucceeds(t *testing.T) {
	assert := assert.New(t)
	a, bus, store := newTestApp(t, infraprovider.NewMockGateway())
	ctx := context.Background()

	require.NoError(t, a.Coordinator.Handle(ctx, commands.CreateTransaction{
		TransactionID: "TXN-1",
		UserID:        "u1",
		Amount:        100.00,
		Currency:      "USD",
		PaymentMethod: domain.MethodCreditCard,
		Description:   "order 42",
	}))

	// The external fraud service publishes its verdict; the saga drives
	// the rest of the workflow.
	require.NoError(t, bus.Emit(ctx, events.NewFraudCheckCompleted("TXN-1", true, 0.2, "")))

	row, err := a.Query.GetByID(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Equal(domain.StatusCompleted, row.Status)
	assert.Equal(100.00, row.Amount)
	require.NotNil(t, row.GatewayTransactionID)
	assert.NotEmpty(*row.GatewayTransactionID)
	assert.NotNil(row.CompletedAt)

	// The log holds exactly the four lifecycle events.
	version, err := store.LastVersion(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Equal(uint64(4), version)
}

func TestEndToEndFraudFailureEndsWorkflow(t *testing.T) {
	assert := assert.New(t)
	gateway := infraprovider.NewMockGateway()
	a, bus, store := newTestApp(t, gateway)
	ctx := context.Background()

	require.NoError(t, a.Coordinator.Handle(ctx, commands.CreateTransaction{
		TransactionID: "TXN-2",
		UserID:        "u1",
		Amount:        250.00,
		Currency:      "USD",
		PaymentMethod: domain.MethodDebitCard,
	}))
	require.NoError(t, bus.Emit(ctx, events.NewFraudCheckCompleted("TXN-2", false, 0.95, "velocity check")))

	row, err := a.Query.GetByID(ctx, "TXN-2")
	require.NoError(t, err)
	assert.Equal(domain.StatusFraudCheckFailed, row.Status)
	require.NotNil(t, row.FraudReason)
	assert.Equal("velocity check", *row.FraudReason)

	// No payment was attempted and no payment events were logged.
	assert.Empty(gateway.Charges())
	version, err := store.LastVersion(ctx, "TXN-2")
	require.NoError(t, err)
	assert.Equal(uint64(2), version)
}

func TestEndToEndGatewayFailure(t *testing.T) {
	assert := assert.New(t)
	gateway := infraprovider.NewMockGateway()
	gateway.FailAlways(&provider.GatewayError{
		Code: "CARD_DECLINED", Message: "card declined", Retryable: false,
	})
	a, bus, store := newTestApp(t, gateway)
	ctx := context.Background()

	require.NoError(t, a.Coordinator.Handle(ctx, commands.CreateTransaction{
		TransactionID: "TXN-3",
		UserID:        "u9",
		Amount:        75.00,
		Currency:      "USD",
		PaymentMethod: domain.MethodCreditCard,
	}))
	require.NoError(t, bus.Emit(ctx, events.NewFraudCheckCompleted("TXN-3", true, 0.1, "")))

	row, err := a.Query.GetByID(ctx, "TXN-3")
	require.NoError(t, err)
	assert.Equal(domain.StatusFailed, row.Status)
	assert.NotNil(row.CompletedAt)

	// Exactly one charge attempt: PaymentProcessingStarted + PaymentFailed.
	assert.Len(gateway.Charges(), 1)
	version, err := store.LastVersion(ctx, "TXN-3")
	require.NoError(t, err)
	assert.Equal(uint64(4), version)
}

func TestEndToEndRedeliveredVerdictIsNoop(t *testing.T) {
	assert := assert.New(t)
	gateway := infraprovider.NewMockGateway()
	a, bus, store := newTestApp(t, gateway)
	ctx := context.Background()

	require.NoError(t, a.Coordinator.Handle(ctx, commands.CreateTransaction{
		TransactionID: "TXN-4",
		UserID:        "u1",
		Amount:        100.00,
		Currency:      "USD",
		PaymentMethod: domain.MethodCreditCard,
	}))
	verdict := events.NewFraudCheckCompleted("TXN-4", true, 0.2, "")
	require.NoError(t, bus.Emit(ctx, verdict))

	versionAfterFirst, err := store.LastVersion(ctx, "TXN-4")
	require.NoError(t, err)
	chargesAfterFirst := len(gateway.Charges())

	// At-least-once delivery: the same verdict arrives again.
	require.NoError(t, bus.Emit(ctx, verdict))

	versionAfterSecond, err := store.LastVersion(ctx, "TXN-4")
	require.NoError(t, err)
	assert.Equal(versionAfterFirst, versionAfterSecond)
	assert.Equal(chargesAfterFirst, len(gateway.Charges()))
}
