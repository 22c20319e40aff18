// Package domain holds the types and errors shared by every layer of the
// payment processor: transaction statuses, payment methods and the sentinel
// errors that cross package boundaries.
package domain

// TransactionStatus represents the lifecycle state of a payment transaction.
type TransactionStatus string

const (
	StatusPending           TransactionStatus = "PENDING"
	StatusFraudCheckPassed  TransactionStatus = "FRAUD_CHECK_PASSED"
	StatusFraudCheckFailed  TransactionStatus = "FRAUD_CHECK_FAILED"
	StatusPaymentProcessing TransactionStatus = "PAYMENT_PROCESSING"
	StatusCompleted         TransactionStatus = "COMPLETED"
	StatusFailed            TransactionStatus = "FAILED"

	// Reserved for a future compensating workflow. No command or event
	// produces these statuses today.
	StatusCancelled TransactionStatus = "CANCELLED"
	StatusRefunded  TransactionStatus = "REFUNDED"
)

// String returns the string representation of the status.
func (s TransactionStatus) String() string { return string(s) }

// Terminal reports whether the status ends the payment workflow. A failed
// fraud check is terminal: the transaction never reaches a gateway.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusFraudCheckFailed,
		StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// PaymentMethod identifies how a transaction is funded.
type PaymentMethod string

const (
	MethodCreditCard     PaymentMethod = "CREDIT_CARD"
	MethodDebitCard      PaymentMethod = "DEBIT_CARD"
	MethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	MethodDigitalWallet  PaymentMethod = "DIGITAL_WALLET"
	MethodCryptocurrency PaymentMethod = "CRYPTOCURRENCY"
)

// String returns the string representation of the payment method.
func (m PaymentMethod) String() string { return string(m) }
