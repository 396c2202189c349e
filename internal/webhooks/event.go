// Package webhooks reconciles processor notifications with local payment sources.
package webhooks

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-payments/internal/fees"
	"github.com/angelmondragon/marketplace-payments/internal/payments"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/paypal"
	"github.com/angelmondragon/marketplace-payments/pkg/square"
)

// Event is a provider-neutral notification. Type is empty for deliveries the
// service does not consume; RawType keeps the provider's name for logging.
// RefundAmount is zero when the delivery did not say how much was refunded.
type Event struct {
	Provider        enums.PaymentProcessor
	DeliveryID      string
	Type            enums.WebhookEventType
	RawType         string
	ResourceID      string
	AuthorizationID string
	CaptureID       string
	OrderID         string
	RefundID        string
	RefundAmount    decimal.Decimal
}

// Result is the body returned to the processor.
type Result struct {
	Result bool     `json:"result"`
	Errors []string `json:"errors"`
}

func succeeded() Result {
	return Result{Result: true, Errors: []string{}}
}

func failedWith(errs ...string) Result {
	return Result{Result: false, Errors: errs}
}

func (e Event) lookup() payments.Lookup {
	return payments.Lookup{
		CaptureID:       e.CaptureID,
		AuthorizationID: e.AuthorizationID,
		ExternalOrderID: e.OrderID,
	}
}

// FromPayPal normalises a PayPal delivery.
func FromPayPal(raw *paypal.WebhookEvent) Event {
	resource := raw.Resource
	related := resource.Related()
	event := Event{
		Provider:        enums.PaymentProcessorPayPal,
		DeliveryID:      raw.ID,
		RawType:         raw.EventType,
		ResourceID:      resource.ID,
		AuthorizationID: related.AuthorizationID,
		OrderID:         related.OrderID,
	}
	switch raw.EventType {
	case paypal.EventCaptureCompleted:
		event.Type = enums.WebhookEventCaptureCompleted
		event.CaptureID = resource.ID
	case paypal.EventCaptureDenied:
		event.Type = enums.WebhookEventCaptureDenied
		event.CaptureID = resource.ID
	case paypal.EventCaptureRefunded:
		event.Type = enums.WebhookEventCaptureRefunded
		event.RefundID = resource.ID
		event.CaptureID = resource.LinkedCaptureID()
		if resource.Amount != nil {
			if amount, err := decimal.NewFromString(resource.Amount.Value); err == nil {
				event.RefundAmount = amount
			}
		}
	case paypal.EventAuthorizationVoided:
		event.Type = enums.WebhookEventAuthorizationVoided
		event.AuthorizationID = resource.ID
	}
	return event
}

// FromSquare normalises a Square delivery. Square uses one payment id for
// both the authorization and the capture.
func FromSquare(raw *square.WebhookEvent) Event {
	event := Event{
		Provider:   enums.PaymentProcessorSquare,
		DeliveryID: raw.EventID,
		RawType:    raw.Type,
		ResourceID: raw.Data.ID,
	}
	if payment := raw.Data.Object.Payment; payment != nil {
		event.ResourceID = payment.ID
		event.AuthorizationID = payment.ID
		event.CaptureID = payment.ID
		switch strings.ToUpper(payment.Status) {
		case "COMPLETED":
			event.Type = enums.WebhookEventCaptureCompleted
		case "FAILED":
			event.Type = enums.WebhookEventCaptureDenied
		case "CANCELED":
			event.Type = enums.WebhookEventAuthorizationVoided
		}
		return event
	}
	if refund := raw.Data.Object.Refund; refund != nil {
		event.ResourceID = refund.ID
		event.RefundID = refund.ID
		event.CaptureID = refund.PaymentID
		if money := refund.AmountMoney; money != nil {
			event.RefundAmount = fees.FromMinorUnits(money.Amount, money.Currency)
		}
		if strings.EqualFold(refund.Status, "COMPLETED") {
			event.Type = enums.WebhookEventCaptureRefunded
		}
	}
	return event
}
