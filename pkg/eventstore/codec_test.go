package eventstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/domain/events"
	"github.com/amirasaad/payproc/pkg/eventstore"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	assert := assert.New(t)
	original := events.NewTransactionCreated(
		"TXN-1", "u1", 100.00, "USD", domain.MethodCreditCard, "order 42",
	)

	eventType, payload, err := eventstore.Encode(original)
	require.NoError(t, err)
	assert.Equal("TransactionCreated", eventType)

	decoded, err := eventstore.Decode(eventType, payload)
	require.NoError(t, err)

	created, ok := decoded.(*events.TransactionCreated)
	require.True(t, ok)
	assert.Equal(original.TransactionID, created.TransactionID)
	assert.Equal(original.EventID, created.EventID)
	assert.Equal(original.Amount, created.Amount)
	assert.Equal(original.PaymentMethod, created.PaymentMethod)
	assert.True(original.Timestamp.Equal(created.Timestamp))
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := eventstore.Decode("TransactionArchived", []byte(`{}`))
	assert.ErrorIs(t, err, eventstore.ErrSerialization)
}

func TestDecodeCorruptPayload(t *testing.T) {
	_, err := eventstore.Decode("TransactionCreated", []byte(`{"amount":`))
	assert.ErrorIs(t, err, eventstore.ErrSerialization)
}

// Payloads written before a field existed must still decode.
func TestDecodeForwardCompatible(t *testing.T) {
	payload := []byte(`{"transactionId":"TXN-1","userId":"u1","amount":50}`)
	decoded, err := eventstore.Decode("TransactionCreated", payload)
	require.NoError(t, err)

	created := decoded.(*events.TransactionCreated)
	assert.Equal(t, "TXN-1", created.TransactionID)
	assert.Equal(t, 50.0, created.Amount)
	assert.Empty(t, created.Description)
}
