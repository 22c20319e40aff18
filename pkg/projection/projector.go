// Package projection maintains the transaction read model by folding
// domain events into denormalized rows. Every update is last-write-wins
// and idempotent, so at-least-once delivery and replays are safe.
package projection

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/payproc/pkg/cache"
	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/domain/events"
	"github.com/amirasaad/payproc/pkg/dto"
	"github.com/amirasaad/payproc/pkg/eventbus"
	repotransaction "github.com/amirasaad/payproc/pkg/repository/transaction"
)

// Projector applies transaction events to the read model and invalidates
// the cache entry for each touched row.
type Projector struct {
	repo   repotransaction.Repository
	cache  cache.TransactionCache
	logger *slog.Logger
}

// New creates a Projector. cache may be nil.
func New(repo repotransaction.Repository, c cache.TransactionCache, logger *slog.Logger) *Projector {
	return &Projector{repo: repo, cache: c, logger: logger.With("component", "projector")}
}

// Register subscribes the projector to every event type it materializes.
func (p *Projector) Register(bus eventbus.Bus) {
	for _, eventType := range []string{
		events.TransactionCreated{}.Type(),
		events.FraudCheckCompleted{}.Type(),
		events.PaymentProcessingStarted{}.Type(),
		events.PaymentProcessed{}.Type(),
		events.PaymentFailed{}.Type(),
	} {
		bus.Register(eventType, p.Handle)
	}
}

// Handle applies one event to the read model. An update against a missing
// row is logged and skipped: the create event may still be in flight, and
// its eventual arrival upserts the full row.
func (p *Projector) Handle(ctx context.Context, e events.Event) error {
	var err error
	switch ev := e.(type) {
	case *events.TransactionCreated:
		err = p.repo.Upsert(ctx, dto.TransactionRead{
			TransactionID: ev.TransactionID,
			UserID:        ev.UserID,
			Amount:        ev.Amount,
			Currency:      ev.Currency,
			PaymentMethod: ev.PaymentMethod,
			Description:   ev.Description,
			Status:        domain.StatusPending,
			CreatedAt:     ev.Timestamp,
		})
	case *events.FraudCheckCompleted:
		err = p.update(ctx, ev.TransactionID, fraudCheckUpdate(ev))
	case *events.PaymentProcessingStarted:
		err = p.update(ctx, ev.TransactionID, statusUpdate(domain.StatusPaymentProcessing, ev.Timestamp))
	case *events.PaymentProcessed:
		update := statusUpdate(domain.StatusCompleted, ev.Timestamp)
		update.GatewayTransactionID = &ev.GatewayTransactionID
		err = p.update(ctx, ev.TransactionID, update)
	case *events.PaymentFailed:
		err = p.update(ctx, ev.TransactionID, statusUpdate(domain.StatusFailed, ev.Timestamp))
	default:
		p.logger.Debug("ignoring event with no read-model effect", "event_type", e.Type())
		return nil
	}
	if err != nil {
		return err
	}

	if p.cache != nil {
		if err := p.cache.Delete(e.Aggregate()); err != nil {
			p.logger.Warn("cache invalidation failed",
				"transaction_id", e.Aggregate(), "error", err)
		}
	}
	return nil
}

func (p *Projector) update(ctx context.Context, transactionID string, update dto.TransactionUpdate) error {
	err := p.repo.Update(ctx, transactionID, update)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.Warn("read row missing, skipping update",
			"transaction_id", transactionID)
		return nil
	}
	return err
}

func fraudCheckUpdate(ev *events.FraudCheckCompleted) dto.TransactionUpdate {
	status := domain.StatusFraudCheckPassed
	if !ev.Passed {
		status = domain.StatusFraudCheckFailed
	}
	update := statusUpdate(status, ev.Timestamp)
	update.RiskScore = &ev.RiskScore
	if ev.Reason != "" {
		update.FraudReason = &ev.Reason
	}
	return update
}

// statusUpdate builds a status transition, stamping the completion time
// when the new status ends the workflow.
func statusUpdate(status domain.TransactionStatus, at time.Time) dto.TransactionUpdate {
	update := dto.TransactionUpdate{Status: &status}
	if status.Terminal() {
		update.CompletedAt = &at
	}
	return update
}

var _ eventbus.HandlerFunc = (*Projector)(nil).Handle
