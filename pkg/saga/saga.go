// Package saga orchestrates the payment workflow as a stateless reactor:
// each consumed event maps to zero or one command submitted to the
// coordinator. Handlers are safe under at-least-once redelivery because
// the aggregate's status preconditions reject duplicates with
// domain.ErrInvalidState, which the saga swallows as a no-op.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/payproc/pkg/commands"
	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/domain/events"
	"github.com/amirasaad/payproc/pkg/dto"
	"github.com/amirasaad/payproc/pkg/eventbus"
)

// CommandHandler is the slice of the coordinator the saga needs.
type CommandHandler interface {
	Handle(ctx context.Context, cmd commands.Command) error
}

// TransactionReader looks up read-model rows, used to recover the amount
// for ProcessPayment.
type TransactionReader interface {
	GetByID(ctx context.Context, transactionID string) (*dto.TransactionRead, error)
}

// HandleTransactionCreated re-issues CreateTransaction for a consumed
// creation event. Against an aggregate that already exists this fails with
// ErrInvalidState and is dropped, which makes replays and redeliveries of
// the creation topic harmless.
func HandleTransactionCreated(handler CommandHandler, logger *slog.Logger) eventbus.HandlerFunc {
	log := logger.With("handler", "HandleTransactionCreated")
	return func(ctx context.Context, e events.Event) error {
		ev, ok := e.(*events.TransactionCreated)
		if !ok {
			log.Error("unexpected event", "event_type", e.Type())
			return nil
		}

		err := handler.Handle(ctx, commands.CreateTransaction{
			TransactionID: ev.TransactionID,
			UserID:        ev.UserID,
			Amount:        ev.Amount,
			Currency:      ev.Currency,
			PaymentMethod: ev.PaymentMethod,
			Description:   ev.Description,
		})
		if errors.Is(err, domain.ErrInvalidState) {
			log.Debug("transaction already exists, ignoring redelivery",
				"transaction_id", ev.TransactionID)
			return nil
		}
		return err
	}
}

// HandleFraudCheckCompleted feeds the screening verdict into the aggregate
// and, when the check passed, advances the workflow with ProcessPayment.
// The payment amount comes from the read model; if the row has not been
// projected yet the handler fails so the bus redelivers the event once the
// projection caught up.
func HandleFraudCheckCompleted(
	handler CommandHandler,
	reader TransactionReader,
	gatewayName string,
	logger *slog.Logger,
) eventbus.HandlerFunc {
	log := logger.With("handler", "HandleFraudCheckCompleted")
	return func(ctx context.Context, e events.Event) error {
		ev, ok := e.(*events.FraudCheckCompleted)
		if !ok {
			log.Error("unexpected event", "event_type", e.Type())
			return nil
		}

		err := handler.Handle(ctx, commands.ProcessFraudCheck{
			TransactionID: ev.TransactionID,
			Passed:        ev.Passed,
			RiskScore:     ev.RiskScore,
			Reason:        ev.Reason,
		})
		switch {
		case errors.Is(err, domain.ErrInvalidState):
			log.Debug("fraud verdict already applied, ignoring redelivery",
				"transaction_id", ev.TransactionID)
		case err != nil:
			return err
		}

		if !ev.Passed {
			log.Info("fraud check failed, workflow ends",
				"transaction_id", ev.TransactionID,
				"risk_score", ev.RiskScore,
				"reason", ev.Reason,
			)
			return nil
		}
		return processPayment(ctx, handler, reader, gatewayName, ev.TransactionID, log)
	}
}

func processPayment(
	ctx context.Context,
	handler CommandHandler,
	reader TransactionReader,
	gatewayName string,
	transactionID string,
	log *slog.Logger,
) error {
	row, err := reader.GetByID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load amount for payment: %w", err)
	}

	err = handler.Handle(ctx, commands.ProcessPayment{
		TransactionID:  transactionID,
		Amount:         row.Amount,
		PaymentGateway: gatewayName,
	})
	if errors.Is(err, domain.ErrInvalidState) {
		log.Debug("payment already in progress or settled, ignoring redelivery",
			"transaction_id", transactionID)
		return nil
	}
	return err
}

// HandlePaymentProcessed closes the saga for a settled transaction. No
// further command is issued.
func HandlePaymentProcessed(logger *slog.Logger) eventbus.HandlerFunc {
	log := logger.With("handler", "HandlePaymentProcessed")
	return func(ctx context.Context, e events.Event) error {
		ev, ok := e.(*events.PaymentProcessed)
		if !ok {
			log.Error("unexpected event", "event_type", e.Type())
			return nil
		}
		log.Info("✅ payment settled",
			"transaction_id", ev.TransactionID,
			"gateway", ev.PaymentGateway,
			"gateway_transaction_id", ev.GatewayTransactionID,
			"amount", ev.Amount,
		)
		return nil
	}
}

// HandlePaymentFailed closes the saga for a failed transaction. No further
// command is issued; retryable failures are re-driven by the caller, not
// by the saga.
func HandlePaymentFailed(logger *slog.Logger) eventbus.HandlerFunc {
	log := logger.With("handler", "HandlePaymentFailed")
	return func(ctx context.Context, e events.Event) error {
		ev, ok := e.(*events.PaymentFailed)
		if !ok {
			log.Error("unexpected event", "event_type", e.Type())
			return nil
		}
		log.Warn("❌ payment failed",
			"transaction_id", ev.TransactionID,
			"reason", ev.Reason,
			"error_code", ev.ErrorCode,
			"retryable", ev.Retryable,
		)
		return nil
	}
}

// Register wires all saga handlers onto the bus.
func Register(
	bus eventbus.Bus,
	handler CommandHandler,
	reader TransactionReader,
	gatewayName string,
	logger *slog.Logger,
) {
	bus.Register(events.TransactionCreated{}.Type(), HandleTransactionCreated(handler, logger))
	bus.Register(events.FraudCheckCompleted{}.Type(), HandleFraudCheckCompleted(handler, reader, gatewayName, logger))
	bus.Register(events.PaymentProcessed{}.Type(), HandlePaymentProcessed(logger))
	bus.Register(events.PaymentFailed{}.Type(), HandlePaymentFailed(logger))
}
