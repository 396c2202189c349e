package enums

import "fmt"

// WebhookEventType is the provider-neutral kind of an inbound processor notification.
type WebhookEventType string

const (
	WebhookEventCaptureCompleted    WebhookEventType = "capture_completed"
	WebhookEventCaptureDenied       WebhookEventType = "capture_denied"
	WebhookEventCaptureRefunded     WebhookEventType = "capture_refunded"
	WebhookEventAuthorizationVoided WebhookEventType = "authorization_voided"
)

var validWebhookEventTypes = []WebhookEventType{
	WebhookEventCaptureCompleted,
	WebhookEventCaptureDenied,
	WebhookEventCaptureRefunded,
	WebhookEventAuthorizationVoided,
}

// String implements fmt.Stringer.
func (w WebhookEventType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WebhookEventType.
func (w WebhookEventType) IsValid() bool {
	for _, candidate := range validWebhookEventTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWebhookEventType converts raw input into a WebhookEventType.
func ParseWebhookEventType(value string) (WebhookEventType, error) {
	for _, candidate := range validWebhookEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook event type %q", value)
}
