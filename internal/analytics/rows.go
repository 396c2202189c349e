package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/angelmondragon/marketplace-payments/pkg/outbox/payloads"
)

// PaymentStateRow mirrors the payment_state_events BigQuery schema.
type PaymentStateRow struct {
	EventID         string             `bigquery:"event_id"`
	OccurredAt      time.Time          `bigquery:"occurred_at"`
	PaymentSourceID string             `bigquery:"payment_source_id"`
	PaymentID       string             `bigquery:"payment_id"`
	Processor       string             `bigquery:"processor"`
	Event           string             `bigquery:"event"`
	FromStatus      string             `bigquery:"from_status"`
	ToStatus        string             `bigquery:"to_status"`
	AuthorizationID *string            `bigquery:"authorization_id"`
	CaptureID       *string            `bigquery:"capture_id"`
	RefundID        *string            `bigquery:"refund_id"`
	FailureReason   *string            `bigquery:"failure_reason"`
	ActorID         *string            `bigquery:"actor_id"`
	ActorRole       *string            `bigquery:"actor_role"`
	Payload         cbigquery.NullJSON `bigquery:"payload"`
}

// NewPaymentStateRow flattens a payment_source_state_changed event.
func NewPaymentStateRow(envelope Envelope, event payloads.PaymentSourceStateChanged) PaymentStateRow {
	row := PaymentStateRow{
		EventID:         envelope.EventID,
		OccurredAt:      envelope.OccurredAt,
		PaymentSourceID: event.PaymentSourceID.String(),
		PaymentID:       event.PaymentID.String(),
		Processor:       string(event.Processor),
		Event:           event.Event,
		FromStatus:      string(event.From),
		ToStatus:        string(event.To),
		AuthorizationID: optional(event.AuthorizationID),
		CaptureID:       optional(event.CaptureID),
		RefundID:        optional(event.RefundID),
		FailureReason:   optional(event.FailureReason),
		Payload:         nullJSON(envelope.Payload),
	}
	if envelope.Actor != nil {
		row.ActorID = optional(envelope.Actor.ID)
		row.ActorRole = optional(envelope.Actor.Role)
	}
	return row
}

func decodeStateChanged(envelope Envelope) (payloads.PaymentSourceStateChanged, error) {
	var event payloads.PaymentSourceStateChanged
	if len(envelope.Payload) == 0 {
		return event, fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	if err := json.Unmarshal(envelope.Payload, &event); err != nil {
		return event, fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return event, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func nullJSON(raw json.RawMessage) cbigquery.NullJSON {
	if len(raw) == 0 {
		return cbigquery.NullJSON{}
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}
}
