package eventstore_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	infraeventstore "github.com/amirasaad/payproc/infra/eventstore"
	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/domain/events"
	"github.com/amirasaad/payproc/pkg/eventstore"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestGormStore_Append(t *testing.T) {
	db, mock := newMockDB(t)
	store := infraeventstore.NewGormStore(db, slog.Default())

	created := events.NewTransactionCreated("TXN-1", "u1", 100.00, "USD", domain.MethodCreditCard, "")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(sequence_number\), 0\) FROM "domain_events"`).
		WithArgs("TXN-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "domain_events" (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := store.Append(context.Background(), "TXN-1", []events.Event{created}, 0)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AppendVersionConflict(t *testing.T) {
	db, mock := newMockDB(t)
	store := infraeventstore.NewGormStore(db, slog.Default())

	created := events.NewTransactionCreated("TXN-1", "u1", 100.00, "USD", domain.MethodCreditCard, "")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(sequence_number\), 0\) FROM "domain_events"`).
		WithArgs("TXN-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectRollback()

	err := store.Append(context.Background(), "TXN-1", []events.Event{created}, 0)
	assert.ErrorIs(t, err, eventstore.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AppendLostRace(t *testing.T) {
	db, mock := newMockDB(t)
	store := infraeventstore.NewGormStore(db, slog.Default())

	created := events.NewTransactionCreated("TXN-1", "u1", 100.00, "USD", domain.MethodCreditCard, "")

	// The version check passes but a concurrent writer commits first; the
	// unique index on (aggregate_id, sequence_number) rejects the insert.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(sequence_number\), 0\) FROM "domain_events"`).
		WithArgs("TXN-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "domain_events" (.+) RETURNING "id"`).
		WillReturnError(gorm.ErrDuplicatedKey)
	mock.ExpectRollback()

	err := store.Append(context.Background(), "TXN-1", []events.Event{created}, 0)
	assert.ErrorIs(t, err, eventstore.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Load(t *testing.T) {
	db, mock := newMockDB(t)
	store := infraeventstore.NewGormStore(db, slog.Default())

	rows := sqlmock.NewRows([]string{"id", "aggregate_id", "sequence_number", "event_type", "payload"}).
		AddRow(1, "TXN-1", 1, "TransactionCreated", []byte(`{"transactionId":"TXN-1","userId":"u1","amount":100}`)).
		AddRow(2, "TXN-1", 2, "FraudCheckCompleted", []byte(`{"transactionId":"TXN-1","passed":true,"riskScore":0.2}`))
	mock.ExpectQuery(`SELECT \* FROM "domain_events" WHERE aggregate_id = (.+) ORDER BY sequence_number ASC`).
		WithArgs("TXN-1").
		WillReturnRows(rows)

	history, err := store.Load(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "TransactionCreated", history[0].Type())

	fraud := history[1].(*events.FraudCheckCompleted)
	assert.True(t, fraud.Passed)
	assert.Equal(t, 0.2, fraud.RiskScore)
}

func TestGormStore_LoadCorruptEventIsFatal(t *testing.T) {
	db, mock := newMockDB(t)
	store := infraeventstore.NewGormStore(db, slog.Default())

	rows := sqlmock.NewRows([]string{"id", "aggregate_id", "sequence_number", "event_type", "payload"}).
		AddRow(1, "TXN-1", 1, "TransactionVoided", []byte(`{}`))
	mock.ExpectQuery(`SELECT \* FROM "domain_events"`).
		WithArgs("TXN-1").
		WillReturnRows(rows)

	_, err := store.Load(context.Background(), "TXN-1")
	assert.ErrorIs(t, err, eventstore.ErrSerialization)
}
