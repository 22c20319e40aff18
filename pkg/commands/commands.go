// Package commands contains the command DTOs that drive the transaction
// aggregate. Commands are intents, never persisted; all fields are
// validated at construction.
package commands

import (
	"fmt"

	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Command is the contract shared by all transaction commands.
type Command interface {
	// Aggregate returns the target transaction id.
	Aggregate() string
	// Validate reports whether the command input is well formed. It wraps
	// domain.ErrValidation so callers can classify the failure.
	Validate() error
}

// CreateTransaction starts a new payment transaction.
type CreateTransaction struct {
	TransactionID string               `validate:"required"`
	UserID        string               `validate:"required"`
	Amount        float64              `validate:"required,gt=0"`
	Currency      string               `validate:"required,len=3"`
	PaymentMethod domain.PaymentMethod `validate:"required"`
	Description   string
}

// Aggregate implements Command.
func (c CreateTransaction) Aggregate() string { return c.TransactionID }

// Validate implements Command.
func (c CreateTransaction) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: create transaction: %v", domain.ErrValidation, err)
	}
	return nil
}

// ProcessFraudCheck records a fraud screening verdict on the transaction.
type ProcessFraudCheck struct {
	TransactionID string  `validate:"required"`
	Passed        bool    `validate:"-"`
	RiskScore     float64 `validate:"gte=0,lte=1"`
	Reason        string
}

// Aggregate implements Command.
func (c ProcessFraudCheck) Aggregate() string { return c.TransactionID }

// Validate implements Command.
func (c ProcessFraudCheck) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: process fraud check: %v", domain.ErrValidation, err)
	}
	return nil
}

// ProcessPayment settles the transaction through a payment gateway.
type ProcessPayment struct {
	TransactionID  string  `validate:"required"`
	Amount         float64 `validate:"required,gt=0"`
	PaymentGateway string  `validate:"required"`
}

// Aggregate implements Command.
func (c ProcessPayment) Aggregate() string { return c.TransactionID }

// Validate implements Command.
func (c ProcessPayment) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: process payment: %v", domain.ErrValidation, err)
	}
	return nil
}
