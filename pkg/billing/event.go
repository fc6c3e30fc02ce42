package billing

import "time"

// EventType is the normalized kind of a webhook event.
type EventType string

const (
	EventDepositCompleted  EventType = "deposit.completed"
	EventPaymentSucceeded  EventType = "payment.succeeded"
	EventPaymentFailed     EventType = "payment.failed"
	EventSubscriptionEnded EventType = "subscription.ended"
	EventUnhandled         EventType = "unhandled"
)

// PaymentStatusPaid is the checkout session payment status once funds are captured.
const PaymentStatusPaid = "paid"

// Event is a verified, provider-agnostic webhook notification.
type Event struct {
	ID             string
	Type           EventType
	ProviderType   string // raw event type as sent by the processor
	SessionID      string
	CustomerID     string
	SubscriptionID string
	PaymentStatus  string
	Metadata       map[string]string
	PeriodEnd      time.Time
	CreatedAt      time.Time
}

// MetadataValue returns the metadata value for key, or an empty string.
func (e *Event) MetadataValue(key string) string {
	if e == nil || e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}
