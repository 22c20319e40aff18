// Package transaction implements the payment transaction aggregate: a pure
// state machine that turns commands into events and rebuilds itself by
// folding over its event history.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/payproc/pkg/commands"
	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/domain/events"
	"github.com/amirasaad/payproc/pkg/provider"
)

// Aggregate is the consistency boundary for one payment transaction. All
// state changes go through its command handlers and are sequenced by a
// single version counter: Version always equals the number of events ever
// applied.
type Aggregate struct {
	TransactionID        string
	UserID               string
	Amount               float64
	Currency             string
	PaymentMethod        domain.PaymentMethod
	Description          string
	Status               domain.TransactionStatus
	CreatedAt            time.Time
	CompletedAt          time.Time
	RiskScore            float64
	FraudReason          string
	GatewayTransactionID string
	Version              uint64

	uncommitted []events.Event
}

// New returns an empty aggregate for the given transaction id. State is
// established only by replay or by handling CreateTransaction.
func New(transactionID string) *Aggregate {
	return &Aggregate{TransactionID: transactionID}
}

// HandleCreateTransaction births the aggregate. It fails with
// domain.ErrInvalidState when the aggregate already has history.
func (a *Aggregate) HandleCreateTransaction(cmd commands.CreateTransaction) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if a.Version != 0 {
		return fmt.Errorf("%w: transaction %s already exists", domain.ErrInvalidState, a.TransactionID)
	}

	e := events.NewTransactionCreated(
		cmd.TransactionID,
		cmd.UserID,
		cmd.Amount,
		cmd.Currency,
		cmd.PaymentMethod,
		cmd.Description,
	)
	return a.raise(e)
}

// HandleProcessFraudCheck records the screening verdict. Valid only while
// the transaction is PENDING, which makes redelivered verdicts a safe
// rejection instead of a duplicate transition.
func (a *Aggregate) HandleProcessFraudCheck(cmd commands.ProcessFraudCheck) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := a.requireStatus(domain.StatusPending); err != nil {
		return err
	}

	e := events.NewFraudCheckCompleted(cmd.TransactionID, cmd.Passed, cmd.RiskScore, cmd.Reason)
	return a.raise(e)
}

// HandleProcessPayment settles the transaction through the gateway
// collaborator. It always produces a terminal event pair: a gateway failure
// (including a timeout) becomes a PaymentFailed event, never an error
// return, so at most one gateway attempt is recorded per command. Retry
// policy belongs to the caller, never to the aggregate.
func (a *Aggregate) HandleProcessPayment(ctx context.Context, cmd commands.ProcessPayment, gateway provider.PaymentGateway) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := a.requireStatus(domain.StatusFraudCheckPassed); err != nil {
		return err
	}

	started := events.NewPaymentProcessingStarted(cmd.TransactionID, cmd.Amount, a.PaymentMethod, cmd.PaymentGateway)
	if err := a.raise(started); err != nil {
		return err
	}

	result, err := gateway.Charge(ctx, provider.ChargeRequest{
		TransactionID: cmd.TransactionID,
		Amount:        cmd.Amount,
		Currency:      a.Currency,
		PaymentMethod: a.PaymentMethod,
		Gateway:       cmd.PaymentGateway,
	})
	if err != nil {
		return a.raise(paymentFailedFrom(cmd.TransactionID, err))
	}

	processed := events.NewPaymentProcessed(cmd.TransactionID, cmd.Amount, result.GatewayTransactionID, result.Gateway)
	return a.raise(processed)
}

func paymentFailedFrom(transactionID string, err error) *events.PaymentFailed {
	var gwErr *provider.GatewayError
	if errors.As(err, &gwErr) {
		return events.NewPaymentFailed(transactionID, gwErr.Message, gwErr.Code, gwErr.Retryable)
	}
	// Context deadlines and unclassified failures are retryable: the charge
	// may not have reached the gateway at all.
	return events.NewPaymentFailed(transactionID, err.Error(), "PAYMENT_GATEWAY_ERROR", true)
}

func (a *Aggregate) requireStatus(want domain.TransactionStatus) error {
	if a.Version == 0 {
		return fmt.Errorf("%w: transaction %s does not exist", domain.ErrInvalidState, a.TransactionID)
	}
	if a.Status != want {
		return fmt.Errorf(
			"%w: transaction %s is %s, expected %s",
			domain.ErrInvalidState, a.TransactionID, a.Status, want,
		)
	}
	return nil
}

// raise applies the event and buffers it for persistence. Handling and
// replay share the same apply path so they cannot diverge.
func (a *Aggregate) raise(e events.Event) error {
	if err := a.apply(e); err != nil {
		return err
	}
	a.uncommitted = append(a.uncommitted, e)
	return nil
}

// apply folds one event into the in-memory state. Every applied event
// increments Version by exactly one. An unknown variant is a hard failure:
// skipping it would silently break the version/state invariant.
func (a *Aggregate) apply(e events.Event) error {
	switch ev := e.(type) {
	case *events.TransactionCreated:
		a.TransactionID = ev.TransactionID
		a.UserID = ev.UserID
		a.Amount = ev.Amount
		a.Currency = ev.Currency
		a.PaymentMethod = ev.PaymentMethod
		a.Description = ev.Description
		a.Status = domain.StatusPending
		a.CreatedAt = ev.Timestamp
	case *events.FraudCheckCompleted:
		a.RiskScore = ev.RiskScore
		a.FraudReason = ev.Reason
		if ev.Passed {
			a.Status = domain.StatusFraudCheckPassed
		} else {
			a.Status = domain.StatusFraudCheckFailed
		}
	case *events.PaymentProcessingStarted:
		a.Status = domain.StatusPaymentProcessing
	case *events.PaymentProcessed:
		a.Status = domain.StatusCompleted
		a.GatewayTransactionID = ev.GatewayTransactionID
		a.CompletedAt = ev.Timestamp
	case *events.PaymentFailed:
		a.Status = domain.StatusFailed
		a.CompletedAt = ev.Timestamp
	default:
		return fmt.Errorf("unknown event type %q applied to transaction %s", e.Type(), a.TransactionID)
	}
	a.Version++
	return nil
}

// LoadFromHistory rebuilds state by replaying the full event history. The
// uncommitted buffer ends empty.
func (a *Aggregate) LoadFromHistory(history []events.Event) error {
	for _, e := range history {
		if err := a.apply(e); err != nil {
			return err
		}
	}
	a.uncommitted = nil
	return nil
}

// UncommittedEvents returns the events produced since the last save, in
// emission order.
func (a *Aggregate) UncommittedEvents() []events.Event {
	out := make([]events.Event, len(a.uncommitted))
	copy(out, a.uncommitted)
	return out
}

// ClearUncommittedEvents drops the buffer after a successful save.
func (a *Aggregate) ClearUncommittedEvents() {
	a.uncommitted = nil
}
