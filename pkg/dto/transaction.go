// Package dto contains the data-transfer shapes used between the
// projection, query and storage layers.
package dto

import (
	"time"

	"github.com/amirasaad/payproc/pkg/domain"
)

// TransactionRead is the denormalized read-model row for one transaction,
// keyed by TransactionID and updated in place as events arrive.
type TransactionRead struct {
	TransactionID        string
	UserID               string
	Amount               float64
	Currency             string
	PaymentMethod        domain.PaymentMethod
	Description          string
	Status               domain.TransactionStatus
	CreatedAt            time.Time
	CompletedAt          *time.Time
	RiskScore            *float64
	FraudReason          *string
	GatewayTransactionID *string
}

// TransactionUpdate is a partial, last-write-wins update of a read row.
// Nil fields are left untouched.
type TransactionUpdate struct {
	Status               *domain.TransactionStatus
	CompletedAt          *time.Time
	RiskScore            *float64
	FraudReason          *string
	GatewayTransactionID *string
}

// TransactionSummary aggregates read-model counts and the completed amount
// since a cutoff.
type TransactionSummary struct {
	TotalCount      int64
	CompletedCount  int64
	FailedCount     int64
	PendingCount    int64
	CompletedAmount float64
}
