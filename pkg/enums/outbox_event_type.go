package enums

import "fmt"

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventPaymentSourceStateChanged   OutboxEventType = "payment_source_state_changed"
	EventWebhookReconciliationFailed OutboxEventType = "webhook_reconciliation_failed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPaymentSourceStateChanged,
	EventWebhookReconciliationFailed,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into a OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
