// Package provider defines the contracts for external payment
// collaborators. Implementations live under infra/provider.
package provider

import (
	"context"
	"fmt"

	"github.com/amirasaad/payproc/pkg/domain"
)

// ChargeRequest carries the data a gateway needs to settle one transaction.
type ChargeRequest struct {
	TransactionID string
	Amount        float64
	Currency      string
	PaymentMethod domain.PaymentMethod
	Gateway       string
}

// ChargeResult is the gateway's confirmation of a successful charge.
type ChargeResult struct {
	GatewayTransactionID string
	Gateway              string
}

// GatewayError is a typed gateway failure. Retryable tells outer policies
// (circuit breaker, saga re-drive) whether the same charge may be attempted
// again; the aggregate itself never retries.
type GatewayError struct {
	Code      string
	Message   string
	Retryable bool
}

// Error implements error.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %s: %s (retryable=%t)", e.Code, e.Message, e.Retryable)
}

// PaymentGateway is the external settlement collaborator used by the
// transaction aggregate during ProcessPayment.
type PaymentGateway interface {
	// Name identifies the gateway for logging and event payloads.
	Name() string
	// Charge attempts to settle the transaction. On failure it returns a
	// *GatewayError; a context deadline is reported as a retryable
	// GatewayError so the caller still observes a terminal outcome.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
