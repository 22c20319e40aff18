package eventbus_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraeventbus "github.com/amirasaad/payproc/infra/eventbus"
	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/domain/events"
)

func TestMemoryBusDispatchesInRegistrationOrder(t *testing.T) {
	bus := infraeventbus.NewWithMemory(slog.Default())
	var order []string

	bus.Register("TransactionCreated", func(ctx context.Context, e events.Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Register("TransactionCreated", func(ctx context.Context, e events.Event) error {
		order = append(order, "second")
		return nil
	})

	e := events.NewTransactionCreated("TXN-1", "u1", 100.00, "USD", domain.MethodCreditCard, "")
	require.NoError(t, bus.Emit(context.Background(), e))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestMemoryBusHandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := infraeventbus.NewWithMemory(slog.Default())
	delivered := false

	bus.Register("TransactionCreated", func(ctx context.Context, e events.Event) error {
		return errors.New("handler down")
	})
	bus.Register("TransactionCreated", func(ctx context.Context, e events.Event) error {
		delivered = true
		return nil
	})

	e := events.NewTransactionCreated("TXN-1", "u1", 100.00, "USD", domain.MethodCreditCard, "")
	require.NoError(t, bus.Emit(context.Background(), e))
	assert.True(t, delivered)
}

func TestMemoryBusRecordsPublished(t *testing.T) {
	bus := infraeventbus.NewWithMemory(slog.Default())

	e := events.NewTransactionCreated("TXN-1", "u1", 100.00, "USD", domain.MethodCreditCard, "")
	require.NoError(t, bus.Emit(context.Background(), e))
	require.NoError(t, bus.Emit(context.Background(),
		events.NewFraudCheckCompleted("TXN-1", true, 0.2, "")))

	published := bus.Published()
	require.Len(t, published, 2)
	assert.Equal(t, "TransactionCreated", published[0].Type())
	assert.Equal(t, "FraudCheckCompleted", published[1].Type())

	bus.ClearPublished()
	assert.Empty(t, bus.Published())
}
