package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/amirasaad/payproc/pkg/provider"
)

// MockGateway simulates a payment gateway for tests and local development.
// It succeeds by default; FailNext and FailAlways make the next or every
// Charge fail with a configured GatewayError. Failures are deterministic so
// tests never depend on randomness.
//
// This is NOT for production use.
type MockGateway struct {
	mu         sync.Mutex
	failNext   bool
	failAlways bool
	failure    *provider.GatewayError
	charges    []provider.ChargeRequest
}

// NewMockGateway creates a gateway that approves every charge.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		failure: &provider.GatewayError{
			Code:      "CARD_DECLINED",
			Message:   "card declined",
			Retryable: false,
		},
	}
}

// Name implements provider.PaymentGateway.
func (m *MockGateway) Name() string { return "mock" }

// Charge implements provider.PaymentGateway.
func (m *MockGateway) Charge(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &provider.GatewayError{
			Code:      "GATEWAY_TIMEOUT",
			Message:   err.Error(),
			Retryable: true,
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.charges = append(m.charges, req)

	if m.failAlways || m.failNext {
		m.failNext = false
		return nil, m.failure
	}
	return &provider.ChargeResult{
		GatewayTransactionID: fmt.Sprintf("GW-%s", uuid.NewString()),
		Gateway:              m.Name(),
	}, nil
}

// FailNext makes only the next Charge fail with the given error.
func (m *MockGateway) FailNext(gerr *provider.GatewayError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
	if gerr != nil {
		m.failure = gerr
	}
}

// FailAlways makes every Charge fail with the given error.
func (m *MockGateway) FailAlways(gerr *provider.GatewayError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAlways = true
	if gerr != nil {
		m.failure = gerr
	}
}

// Charges returns every request seen so far.
func (m *MockGateway) Charges() []provider.ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]provider.ChargeRequest, len(m.charges))
	copy(out, m.charges)
	return out
}

var _ provider.PaymentGateway = (*MockGateway)(nil)
