// Package events defines the domain events of the payment workflow.
//
// Events are write-once facts about a single transaction. The event log is
// the sole source of truth; every other representation of state is derived
// by replaying it.
package events

import (
	"time"

	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/google/uuid"
)

// Event is the contract every domain event satisfies.
type Event interface {
	// Type returns the stable wire discriminator for the variant.
	Type() string
	// Aggregate returns the transaction id the event belongs to. It is
	// used as the partition key for every publish.
	Aggregate() string
	// OccurredAt returns the event timestamp.
	OccurredAt() time.Time
}

// BaseEvent carries the fields common to all variants. EventID and
// Timestamp are defaulted at construction when absent so historical
// payloads without them still replay.
type BaseEvent struct {
	EventID       string    `json:"eventId"`
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

// Aggregate implements Event.
func (b BaseEvent) Aggregate() string { return b.TransactionID }

// OccurredAt implements Event.
func (b BaseEvent) OccurredAt() time.Time { return b.Timestamp }

func newBase(transactionID string) BaseEvent {
	return BaseEvent{
		EventID:       uuid.NewString(),
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

// TransactionCreated is emitted when a new transaction aggregate is born.
type TransactionCreated struct {
	BaseEvent
	UserID        string               `json:"userId"`
	Amount        float64              `json:"amount"`
	Currency      string               `json:"currency"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Description   string               `json:"description,omitempty"`
}

// NewTransactionCreated builds a TransactionCreated with defaulted id and
// timestamp.
func NewTransactionCreated(
	transactionID, userID string,
	amount float64,
	currency string,
	method domain.PaymentMethod,
	description string,
) *TransactionCreated {
	return &TransactionCreated{
		BaseEvent:     newBase(transactionID),
		UserID:        userID,
		Amount:        amount,
		Currency:      currency,
		PaymentMethod: method,
		Description:   description,
	}
}

// FraudCheckRequested is emitted when a transaction is handed to fraud
// screening.
type FraudCheckRequested struct {
	BaseEvent
	UserID    string  `json:"userId"`
	Amount    float64 `json:"amount"`
	IPAddress string  `json:"ipAddress,omitempty"`
	UserAgent string  `json:"userAgent,omitempty"`
}

// FraudCheckCompleted is emitted by the fraud service with the screening
// verdict.
type FraudCheckCompleted struct {
	BaseEvent
	Passed    bool    `json:"passed"`
	RiskScore float64 `json:"riskScore"`
	Reason    string  `json:"reason,omitempty"`
}

// NewFraudCheckCompleted builds a FraudCheckCompleted with defaulted id and
// timestamp.
func NewFraudCheckCompleted(transactionID string, passed bool, riskScore float64, reason string) *FraudCheckCompleted {
	return &FraudCheckCompleted{
		BaseEvent: newBase(transactionID),
		Passed:    passed,
		RiskScore: riskScore,
		Reason:    reason,
	}
}

// PaymentProcessingStarted is emitted immediately before the gateway call.
type PaymentProcessingStarted struct {
	BaseEvent
	Amount         float64              `json:"amount"`
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod"`
	PaymentGateway string               `json:"paymentGateway"`
}

// NewPaymentProcessingStarted builds a PaymentProcessingStarted with
// defaulted id and timestamp.
func NewPaymentProcessingStarted(transactionID string, amount float64, method domain.PaymentMethod, gateway string) *PaymentProcessingStarted {
	return &PaymentProcessingStarted{
		BaseEvent:      newBase(transactionID),
		Amount:         amount,
		PaymentMethod:  method,
		PaymentGateway: gateway,
	}
}

// PaymentProcessed is emitted when the gateway confirms the charge.
type PaymentProcessed struct {
	BaseEvent
	Amount               float64 `json:"amount"`
	GatewayTransactionID string  `json:"paymentGatewayTransactionId"`
	PaymentGateway       string  `json:"paymentGateway"`
}

// NewPaymentProcessed builds a PaymentProcessed with defaulted id and
// timestamp.
func NewPaymentProcessed(transactionID string, amount float64, gatewayTransactionID, gateway string) *PaymentProcessed {
	return &PaymentProcessed{
		BaseEvent:            newBase(transactionID),
		Amount:               amount,
		GatewayTransactionID: gatewayTransactionID,
		PaymentGateway:       gateway,
	}
}

// PaymentFailed is emitted when the gateway call fails. The failure is a
// produced event, never a propagated error, so callers always observe a
// consistent terminal transition.
type PaymentFailed struct {
	BaseEvent
	Reason    string `json:"reason"`
	ErrorCode string `json:"errorCode"`
	Retryable bool   `json:"retryable"`
}

// NewPaymentFailed builds a PaymentFailed with defaulted id and timestamp.
func NewPaymentFailed(transactionID, reason, errorCode string, retryable bool) *PaymentFailed {
	return &PaymentFailed{
		BaseEvent: newBase(transactionID),
		Reason:    reason,
		ErrorCode: errorCode,
		Retryable: retryable,
	}
}

// TransactionCompleted confirms the saga reached a terminal status.
type TransactionCompleted struct {
	BaseEvent
	FinalStatus domain.TransactionStatus `json:"finalStatus"`
	Amount      float64                  `json:"amount"`
	UserID      string                   `json:"userId"`
}

// NotificationSent records a delivery attempt by the notification service.
type NotificationSent struct {
	BaseEvent
	NotificationType string `json:"notificationType"`
	Recipient        string `json:"recipient"`
	Success          bool   `json:"success"`
	Message          string `json:"message,omitempty"`
}

func (e TransactionCreated) Type() string        { return "TransactionCreated" }
func (e FraudCheckRequested) Type() string       { return "FraudCheckRequested" }
func (e FraudCheckCompleted) Type() string       { return "FraudCheckCompleted" }
func (e PaymentProcessingStarted) Type() string  { return "PaymentProcessingStarted" }
func (e PaymentProcessed) Type() string          { return "PaymentProcessed" }
func (e PaymentFailed) Type() string             { return "PaymentFailed" }
func (e TransactionCompleted) Type() string      { return "TransactionCompleted" }
func (e NotificationSent) Type() string          { return "NotificationSent" }
