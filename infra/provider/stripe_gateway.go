package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/amirasaad/payproc/pkg/provider"
)

// StripeGateway implements provider.PaymentGateway using the Stripe API.
// Each Charge creates and confirms a PaymentIntent carrying the
// transaction id in its metadata, so a settled intent can always be traced
// back to the originating transaction.
type StripeGateway struct {
	client  *stripe.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewStripeGateway creates a new StripeGateway with the given API key.
func NewStripeGateway(apiKey string, timeout time.Duration, logger *slog.Logger) *StripeGateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StripeGateway{
		client:  stripe.NewClient(apiKey),
		timeout: timeout,
		logger:  logger.With("gateway", "stripe"),
	}
}

// Name implements provider.PaymentGateway.
func (s *StripeGateway) Name() string { return "stripe" }

// Charge implements provider.PaymentGateway.
func (s *StripeGateway) Charge(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error) {
	log := s.logger.With(
		"transaction_id", req.TransactionID,
		"amount", req.Amount,
		"currency", req.Currency,
	)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.PaymentIntentCreateParams{
		Amount:      stripe.Int64(toMinorUnits(req.Amount)),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(fmt.Sprintf("Payment for transaction %s", req.TransactionID)),
		Confirm:     stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
		Metadata: map[string]string{
			"transaction_id": req.TransactionID,
			"payment_method": string(req.PaymentMethod),
		},
	}

	pi, err := s.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		gerr := mapStripeError(err)
		log.Error("payment intent failed",
			"error", err, "code", gerr.Code, "retryable", gerr.Retryable)
		return nil, gerr
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		log.Warn("payment intent not settled", "intent_id", pi.ID, "status", pi.Status)
		return nil, &provider.GatewayError{
			Code:      "PAYMENT_NOT_SETTLED",
			Message:   fmt.Sprintf("payment intent %s in status %s", pi.ID, pi.Status),
			Retryable: false,
		}
	}

	log.Info("payment intent succeeded", "intent_id", pi.ID)
	return &provider.ChargeResult{
		GatewayTransactionID: pi.ID,
		Gateway:              s.Name(),
	}, nil
}

// mapStripeError wraps a Stripe API failure as a GatewayError. Declines
// are terminal; infrastructure failures (timeouts, rate limits, Stripe
// being down) are retryable.
func mapStripeError(err error) *provider.GatewayError {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		retryable := sErr.Type == stripe.ErrorTypeAPI ||
			sErr.Code == stripe.ErrorCodeRateLimit ||
			sErr.HTTPStatusCode >= 500
		code := string(sErr.Code)
		if code == "" {
			code = strings.ToUpper(string(sErr.Type))
		}
		return &provider.GatewayError{
			Code:      code,
			Message:   sErr.Msg,
			Retryable: retryable,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &provider.GatewayError{
			Code:      "GATEWAY_TIMEOUT",
			Message:   err.Error(),
			Retryable: true,
		}
	}
	return &provider.GatewayError{
		Code:      "PAYMENT_GATEWAY_ERROR",
		Message:   err.Error(),
		Retryable: true,
	}
}

// toMinorUnits converts a decimal amount to the smallest currency unit.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

var _ provider.PaymentGateway = (*StripeGateway)(nil)
