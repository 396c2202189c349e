package paypal

import (
	"errors"
	"strings"
)

// OutcomeKind tags what an order response settled into.
type OutcomeKind string

const (
	OutcomeAuthorization OutcomeKind = "authorization"
	OutcomeCapture       OutcomeKind = "capture"
)

// ErrNoPaymentOutcome is returned when an order carries neither an
// authorization nor a capture.
var ErrNoPaymentOutcome = errors.New("paypal order has no authorization or capture")

// Outcome is the payment produced by an order authorize/capture call.
type Outcome struct {
	Kind   OutcomeKind
	ID     string
	Status string
}

// Declined reports whether the processor rejected the payment even though
// the HTTP call succeeded.
func (o Outcome) Declined() bool {
	switch strings.ToUpper(o.Status) {
	case StatusDeclined, StatusFailed:
		return true
	}
	return false
}

// ResolveOutcome inspects the first purchase unit carrying payments. A capture
// wins over an authorization on the same unit.
func ResolveOutcome(order *Order) (Outcome, error) {
	if order == nil {
		return Outcome{}, ErrNoPaymentOutcome
	}
	for _, unit := range order.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		if n := len(unit.Payments.Captures); n > 0 {
			capture := unit.Payments.Captures[n-1]
			return Outcome{Kind: OutcomeCapture, ID: capture.ID, Status: capture.Status}, nil
		}
		if n := len(unit.Payments.Authorizations); n > 0 {
			auth := unit.Payments.Authorizations[n-1]
			return Outcome{Kind: OutcomeAuthorization, ID: auth.ID, Status: auth.Status}, nil
		}
	}
	return Outcome{}, ErrNoPaymentOutcome
}
