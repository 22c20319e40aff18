package transaction

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/dto"
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
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestRepository_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)

	mock.ExpectExec(`INSERT INTO "transaction_read_models" (.+) ON CONFLICT (.+) DO UPDATE SET (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), dto.TransactionRead{
		TransactionID: "TXN-1",
		UserID:        "u1",
		Amount:        100.00,
		Currency:      "USD",
		PaymentMethod: domain.MethodCreditCard,
		Status:        domain.StatusPending,
		CreatedAt:     time.Now(),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)
	status := domain.StatusPaymentProcessing

	mock.ExpectExec(`UPDATE "transaction_read_models" SET (.+) WHERE transaction_id = (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "TXN-1", dto.TransactionUpdate{Status: &status})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)
	status := domain.StatusCompleted

	mock.ExpectExec(`UPDATE "transaction_read_models" SET (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "TXN-missing", dto.TransactionUpdate{Status: &status})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_UpdateEmptyIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)

	// No SQL expected at all.
	err := repo.Update(context.Background(), "TXN-1", dto.TransactionUpdate{})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)

	mock.ExpectQuery(`SELECT \* FROM "transaction_read_models"`).
		WillReturnRows(sqlmock.NewRows([]string{"transaction_id"}))

	_, err := repo.Get(context.Background(), "TXN-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_CountByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "transaction_read_models" WHERE status = (.+)`).
		WithArgs("COMPLETED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.CountByStatus(context.Background(), domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestRepository_SumAmountByStatusSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := New(db)
	since := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM "transaction_read_models"`).
		WithArgs("COMPLETED", since).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(150.5))

	sum, err := repo.SumAmountByStatusSince(context.Background(), domain.StatusCompleted, since)
	require.NoError(t, err)
	assert.Equal(t, 150.5, sum)
}

func TestMemoryRepositoryMatchesContract(t *testing.T) {
	assert := assert.New(t)
	repo := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Upsert(ctx, dto.TransactionRead{
		TransactionID: "TXN-1",
		UserID:        "u1",
		Amount:        100.00,
		Status:        domain.StatusPending,
		CreatedAt:     now,
	}))

	status := domain.StatusCompleted
	require.NoError(t, repo.Update(ctx, "TXN-1", dto.TransactionUpdate{Status: &status}))

	err := repo.Update(ctx, "TXN-missing", dto.TransactionUpdate{Status: &status})
	assert.ErrorIs(err, domain.ErrNotFound)

	row, err := repo.Get(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Equal(domain.StatusCompleted, row.Status)
}
