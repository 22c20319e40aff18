package events

// EventTypes maps wire discriminators to constructors for decoding. Every
// variant must appear here; decoding a discriminator that is missing from
// this map is a serialization failure, never a silent skip.
var EventTypes = map[string]func() Event{
	"TransactionCreated":       func() Event { return &TransactionCreated{} },
	"FraudCheckRequested":      func() Event { return &FraudCheckRequested{} },
	"FraudCheckCompleted":      func() Event { return &FraudCheckCompleted{} },
	"PaymentProcessingStarted": func() Event { return &PaymentProcessingStarted{} },
	"PaymentProcessed":         func() Event { return &PaymentProcessed{} },
	"PaymentFailed":            func() Event { return &PaymentFailed{} },
	"TransactionCompleted":     func() Event { return &TransactionCompleted{} },
	"NotificationSent":         func() Event { return &NotificationSent{} },
}

// Topics maps event discriminators to their bus topics. Publishes are always
// keyed by transaction id so per-aggregate ordering survives partitioning.
var Topics = map[string]string{
	"TransactionCreated":       "transaction-created",
	"FraudCheckRequested":      "fraud-check-requested",
	"FraudCheckCompleted":      "fraud-check-completed",
	"PaymentProcessingStarted": "payment-processing-started",
	"PaymentProcessed":         "payment-processed",
	"PaymentFailed":            "payment-failed",
	"TransactionCompleted":     "transaction-completed",
	"NotificationSent":         "notification-sent",
}

// TopicFor returns the topic for an event type, falling back to the shared
// payment-events topic for unmapped types.
func TopicFor(eventType string) string {
	if t, ok := Topics[eventType]; ok {
		return t
	}
	return "payment-events"
}
