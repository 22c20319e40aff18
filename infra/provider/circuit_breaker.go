package provider

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/payproc/pkg/provider"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerConfig tunes one circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int
	// OpenTimeout is how long the circuit stays open before a probe call
	// is allowed through.
	OpenTimeout time.Duration
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, OpenTimeout: 30 * time.Second}
}

// CircuitBreakerGateway wraps a PaymentGateway with a per-collaborator
// circuit breaker. State is owned by this wrapper, one instance per
// gateway, never shared globally. While open, Charge fails fast with a
// retryable GatewayError without touching the wrapped gateway; after
// OpenTimeout one probe call is let through and its outcome closes or
// re-opens the circuit.
type CircuitBreakerGateway struct {
	inner  provider.PaymentGateway
	cfg    BreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewCircuitBreakerGateway wraps inner with a fresh closed breaker.
func NewCircuitBreakerGateway(inner provider.PaymentGateway, cfg BreakerConfig, logger *slog.Logger) *CircuitBreakerGateway {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultBreakerConfig().OpenTimeout
	}
	return &CircuitBreakerGateway{
		inner:  inner,
		cfg:    cfg,
		logger: logger.With("breaker", inner.Name()),
	}
}

// Name implements provider.PaymentGateway.
func (c *CircuitBreakerGateway) Name() string { return c.inner.Name() }

// Charge implements provider.PaymentGateway.
func (c *CircuitBreakerGateway) Charge(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	if err := c.admit(); err != nil {
		return nil, err
	}

	res, err := c.inner.Charge(ctx, req)
	c.record(err)
	return res, err
}

// State reports the current breaker state name.
func (c *CircuitBreakerGateway) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.String()
}

func (c *CircuitBreakerGateway) admit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateClosed:
		return nil
	case stateOpen:
		if time.Since(c.openedAt) < c.cfg.OpenTimeout {
			return &provider.GatewayError{
				Code:      "CIRCUIT_OPEN",
				Message:   "circuit breaker open for " + c.inner.Name(),
				Retryable: true,
			}
		}
		c.state = stateHalfOpen
		c.probing = true
		c.logger.Info("circuit half-open, allowing probe call")
		return nil
	default: // half-open
		if c.probing {
			return &provider.GatewayError{
				Code:      "CIRCUIT_OPEN",
				Message:   "circuit breaker probing " + c.inner.Name(),
				Retryable: true,
			}
		}
		c.probing = true
		return nil
	}
}

func (c *CircuitBreakerGateway) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		if c.state != stateClosed {
			c.logger.Info("circuit closed after successful probe")
		}
		c.state = stateClosed
		c.failures = 0
		c.probing = false
		return
	}

	switch c.state {
	case stateHalfOpen:
		c.trip()
	default:
		c.failures++
		if c.failures >= c.cfg.FailureThreshold {
			c.trip()
		}
	}
	c.probing = false
}

// trip opens the circuit. Caller holds the lock.
func (c *CircuitBreakerGateway) trip() {
	c.state = stateOpen
	c.openedAt = time.Now()
	c.failures = 0
	c.logger.Warn("circuit opened", "open_timeout", c.cfg.OpenTimeout)
}

var _ provider.PaymentGateway = (*CircuitBreakerGateway)(nil)
