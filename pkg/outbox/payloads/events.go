package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-payments/pkg/enums"
)

// PaymentSourceStateChanged is emitted on every effective response_status transition.
type PaymentSourceStateChanged struct {
	PaymentSourceID uuid.UUID                 `json:"payment_source_id"`
	PaymentID       uuid.UUID                 `json:"payment_id"`
	Processor       enums.PaymentProcessor    `json:"processor"`
	Event           string                    `json:"event"`
	From            enums.PaymentSourceStatus `json:"from"`
	To              enums.PaymentSourceStatus `json:"to"`
	AuthorizationID string                    `json:"authorization_id,omitempty"`
	CaptureID       string                    `json:"capture_id,omitempty"`
	RefundID        string                    `json:"refund_id,omitempty"`
	FailureReason   string                    `json:"failure_reason,omitempty"`
}

// WebhookReconciliationFailed alerts operators that a delivery could not be applied.
type WebhookReconciliationFailed struct {
	Provider   enums.PaymentProcessor `json:"provider"`
	DeliveryID string                 `json:"delivery_id"`
	EventType  string                 `json:"event_type"`
	ResourceID string                 `json:"resource_id"`
	Errors     []string               `json:"errors"`
}
