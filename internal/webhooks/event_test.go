package webhooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/paypal"
	"github.com/angelmondragon/marketplace-payments/pkg/square"
)

func TestFromPayPal(t *testing.T) {
	raw, err := paypal.ParseWebhookEvent([]byte(`{
		"id": "WH-1",
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {"id": "CAP-1", "status": "COMPLETED",
			"supplementary_data": {"related_ids": {"order_id": "O-1", "authorization_id": "AUTH-1"}}}
	}`))
	require.NoError(t, err)
	event := FromPayPal(raw)
	assert.Equal(t, enums.WebhookEventCaptureCompleted, event.Type)
	assert.Equal(t, "WH-1", event.DeliveryID)
	assert.Equal(t, "CAP-1", event.CaptureID)
	assert.Equal(t, "AUTH-1", event.AuthorizationID)
	assert.Equal(t, "O-1", event.OrderID)

	raw, err = paypal.ParseWebhookEvent([]byte(`{
		"id": "WH-2",
		"event_type": "PAYMENT.CAPTURE.REFUNDED",
		"resource": {"id": "REF-1", "amount": {"currency_code": "USD", "value": "12.50"},
			"links": [{"rel": "up", "href": "https://api-m.paypal.com/v2/payments/captures/CAP-7"}]}
	}`))
	require.NoError(t, err)
	event = FromPayPal(raw)
	assert.Equal(t, enums.WebhookEventCaptureRefunded, event.Type)
	assert.Equal(t, "REF-1", event.RefundID)
	assert.Equal(t, "CAP-7", event.CaptureID)
	assert.Equal(t, "12.50", event.RefundAmount.StringFixed(2))

	raw, err = paypal.ParseWebhookEvent([]byte(`{"id":"WH-3","event_type":"PAYMENT.AUTHORIZATION.VOIDED","resource":{"id":"AUTH-9"}}`))
	require.NoError(t, err)
	event = FromPayPal(raw)
	assert.Equal(t, enums.WebhookEventAuthorizationVoided, event.Type)
	assert.Equal(t, "AUTH-9", event.AuthorizationID)

	raw, err = paypal.ParseWebhookEvent([]byte(`{"id":"WH-4","event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"O-1"}}`))
	require.NoError(t, err)
	assert.Empty(t, FromPayPal(raw).Type)
}

func TestFromSquare(t *testing.T) {
	raw, err := square.ParseWebhookEvent([]byte(`{
		"type": "payment.updated", "event_id": "EV-1",
		"data": {"type": "payment", "id": "SQ-1", "object": {"payment": {"id": "SQ-1", "status": "COMPLETED"}}}
	}`))
	require.NoError(t, err)
	event := FromSquare(raw)
	assert.Equal(t, enums.WebhookEventCaptureCompleted, event.Type)
	assert.Equal(t, "EV-1", event.DeliveryID)
	assert.Equal(t, "SQ-1", event.CaptureID)
	assert.Equal(t, "SQ-1", event.AuthorizationID)

	for status, want := range map[string]enums.WebhookEventType{
		"FAILED":   enums.WebhookEventCaptureDenied,
		"CANCELED": enums.WebhookEventAuthorizationVoided,
		"APPROVED": "",
	} {
		raw, err := square.ParseWebhookEvent([]byte(`{"type":"payment.updated","event_id":"EV","data":{"object":{"payment":{"id":"SQ","status":"` + status + `"}}}}`))
		require.NoError(t, err)
		assert.Equal(t, want, FromSquare(raw).Type, status)
	}

	raw, err = square.ParseWebhookEvent([]byte(`{
		"type": "refund.updated", "event_id": "EV-2",
		"data": {"type": "refund", "id": "RF-1", "object": {"refund": {"id": "RF-1", "status": "COMPLETED", "payment_id": "SQ-1",
			"amount_money": {"amount": 1999, "currency": "USD"}}}}
	}`))
	require.NoError(t, err)
	event = FromSquare(raw)
	assert.Equal(t, enums.WebhookEventCaptureRefunded, event.Type)
	assert.Equal(t, "RF-1", event.RefundID)
	assert.Equal(t, "SQ-1", event.CaptureID)
	assert.Equal(t, "19.99", event.RefundAmount.StringFixed(2))
}
