package enums

import "fmt"

// PaymentSourceStatus tracks the processor-side lifecycle of a payment source.
type PaymentSourceStatus string

const (
	PaymentSourceStatusPending           PaymentSourceStatus = "pending"
	PaymentSourceStatusAuthorized        PaymentSourceStatus = "authorized"
	PaymentSourceStatusCompleted         PaymentSourceStatus = "completed"
	PaymentSourceStatusPartiallyRefunded PaymentSourceStatus = "partially_refunded"
	PaymentSourceStatusRefunded          PaymentSourceStatus = "refunded"
	PaymentSourceStatusVoided            PaymentSourceStatus = "voided"
	PaymentSourceStatusFailed            PaymentSourceStatus = "failed"
)

var validPaymentSourceStatuses = []PaymentSourceStatus{
	PaymentSourceStatusPending,
	PaymentSourceStatusAuthorized,
	PaymentSourceStatusCompleted,
	PaymentSourceStatusPartiallyRefunded,
	PaymentSourceStatusRefunded,
	PaymentSourceStatusVoided,
	PaymentSourceStatusFailed,
}

// String implements fmt.Stringer.
func (p PaymentSourceStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentSourceStatus.
func (p PaymentSourceStatus) IsValid() bool {
	for _, candidate := range validPaymentSourceStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentSourceStatus converts raw input into a PaymentSourceStatus.
func ParsePaymentSourceStatus(value string) (PaymentSourceStatus, error) {
	for _, candidate := range validPaymentSourceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment source status %q", value)
}
