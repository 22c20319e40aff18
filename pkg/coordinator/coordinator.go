// Package coordinator drives the command side: it loads the transaction
// aggregate, executes the command against it, appends the resulting events
// and publishes them only after the append committed. Version conflicts
// are retried with fresh state, and a semaphore bounds the number of
// commands in flight.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"github.com/amirasaad/payproc/pkg/commands"
	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/domain/events"
	"github.com/amirasaad/payproc/pkg/domain/transaction"
	"github.com/amirasaad/payproc/pkg/eventbus"
	"github.com/amirasaad/payproc/pkg/eventstore"
	"github.com/amirasaad/payproc/pkg/provider"
	"github.com/amirasaad/payproc/pkg/repository"
)

// ErrTooManyRequests is returned when the coordinator's admission
// semaphore is exhausted. Callers should back off rather than retry
// immediately.
var ErrTooManyRequests = errors.New("too many concurrent commands")

// Config tunes retry and admission behavior.
type Config struct {
	// MaxRetries is the number of reload-and-retry attempts after a
	// version conflict, not counting the first attempt.
	MaxRetries uint64
	// RetryInitialInterval seeds the exponential backoff between retries.
	RetryInitialInterval time.Duration
	// MaxConcurrent bounds commands executing at once.
	MaxConcurrent int64
}

// DefaultConfig mirrors the defaults used in production deployments.
func DefaultConfig() Config {
	return Config{
		MaxRetries:           3,
		RetryInitialInterval: 50 * time.Millisecond,
		MaxConcurrent:        25,
	}
}

// Coordinator executes commands against transaction aggregates.
type Coordinator struct {
	repo    *repository.AggregateRepository
	bus     eventbus.Bus
	gateway provider.PaymentGateway
	sem     *semaphore.Weighted
	cfg     Config
	logger  *slog.Logger

	// inflight serializes commands per aggregate within this process so
	// local contention resolves by waiting instead of conflict-retrying.
	// Entries are refcounted and evicted when the last holder releases.
	inflightMtx sync.Mutex
	inflight    map[string]*aggregateLock
}

type aggregateLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a Coordinator. gateway may be nil when ProcessPayment is
// never dispatched (e.g. read-only deployments).
func New(
	repo *repository.AggregateRepository,
	bus eventbus.Bus,
	gateway provider.PaymentGateway,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = DefaultConfig().RetryInitialInterval
	}
	return &Coordinator{
		repo:     repo,
		bus:      bus,
		gateway:  gateway,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrent),
		cfg:      cfg,
		logger:   logger.With("component", "coordinator"),
		inflight: make(map[string]*aggregateLock),
	}
}

// Handle validates and executes cmd, retrying on version conflicts.
// Validation and invalid-state errors are permanent and returned as-is.
func (c *Coordinator) Handle(ctx context.Context, cmd commands.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if !c.sem.TryAcquire(1) {
		c.logger.Warn("command rejected, bulkhead full", "transaction_id", cmd.Aggregate())
		return ErrTooManyRequests
	}
	defer c.sem.Release(1)

	committed, err := c.executeLocked(ctx, cmd)
	if err != nil {
		return err
	}
	// Publish outside the aggregate lock: a subscriber may react by
	// dispatching the next command for the same aggregate.
	c.publish(ctx, committed)
	return nil
}

// executeLocked runs the retrying load-handle-save cycle while holding the
// per-aggregate lock, and returns the events that were durably appended.
func (c *Coordinator) executeLocked(ctx context.Context, cmd commands.Command) ([]events.Event, error) {
	unlock := c.lockAggregate(cmd.Aggregate())
	defer unlock()

	bo := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(c.cfg.RetryInitialInterval),
			),
			c.cfg.MaxRetries,
		),
		ctx,
	)

	var committed []events.Event
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		evs, err := c.execute(ctx, cmd)
		if err == nil {
			committed = evs
			return nil
		}
		if errors.Is(err, eventstore.ErrVersionConflict) {
			c.logger.Warn("version conflict, retrying with fresh state",
				"transaction_id", cmd.Aggregate(), "attempt", attempt)
			return err
		}
		return backoff.Permanent(err)
	}, bo)
	return committed, err
}

// execute runs one load-handle-save cycle.
func (c *Coordinator) execute(ctx context.Context, cmd commands.Command) ([]events.Event, error) {
	agg, err := c.loadFor(ctx, cmd)
	if err != nil {
		return nil, err
	}

	switch cmd := cmd.(type) {
	case commands.CreateTransaction:
		err = agg.HandleCreateTransaction(cmd)
	case commands.ProcessFraudCheck:
		err = agg.HandleProcessFraudCheck(cmd)
	case commands.ProcessPayment:
		if c.gateway == nil {
			return nil, fmt.Errorf("no payment gateway configured")
		}
		err = agg.HandleProcessPayment(ctx, cmd, c.gateway)
	default:
		return nil, fmt.Errorf("unsupported command %T", cmd)
	}
	if err != nil {
		return nil, err
	}

	produced := agg.UncommittedEvents()
	if err := c.repo.Save(ctx, agg); err != nil {
		return nil, err
	}
	return produced, nil
}

// loadFor returns a fresh aggregate for CreateTransaction and the stored
// one for every other command.
func (c *Coordinator) loadFor(ctx context.Context, cmd commands.Command) (*transaction.Aggregate, error) {
	if _, ok := cmd.(commands.CreateTransaction); ok {
		agg, err := c.repo.Load(ctx, cmd.Aggregate())
		if err == nil {
			// The stream already exists; let the aggregate reject the
			// duplicate so redelivered creates stay idempotent.
			return agg, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return transaction.New(cmd.Aggregate()), nil
		}
		return nil, err
	}
	return c.repo.Load(ctx, cmd.Aggregate())
}

// publish emits committed events. The append already succeeded, so a
// publish failure is logged and swallowed: downstream consumers catch up
// from redelivery or replay, and failing the command here would make the
// caller retry an already-applied change.
func (c *Coordinator) publish(ctx context.Context, evs []events.Event) {
	for _, e := range evs {
		if err := c.bus.Emit(ctx, e); err != nil {
			c.logger.Error("failed to publish committed event",
				"event_type", e.Type(),
				"transaction_id", e.Aggregate(),
				"error", err,
			)
		}
	}
}

func (c *Coordinator) lockAggregate(id string) func() {
	c.inflightMtx.Lock()
	l, ok := c.inflight[id]
	if !ok {
		l = &aggregateLock{}
		c.inflight[id] = l
	}
	l.refs++
	c.inflightMtx.Unlock()
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.inflightMtx.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.inflight, id)
		}
		c.inflightMtx.Unlock()
	}
}
