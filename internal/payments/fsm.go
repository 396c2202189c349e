package payments

import (
	"fmt"

	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
)

// Event is something that happened to a payment source, locally or at the processor.
type Event string

const (
	EventAuthorized        Event = "authorized"
	EventCaptured          Event = "captured"
	EventCaptureConfirmed  Event = "capture_confirmed"
	EventVoided            Event = "voided"
	EventPartiallyRefunded Event = "partially_refunded"
	EventRefunded          Event = "refunded"
	EventFailed            Event = "failed"
	EventCaptureDenied     Event = "capture_denied"
)

// Outcome classifies the result of applying an event.
type Outcome string

const (
	// OutcomeApplied moved the source to a new status.
	OutcomeApplied Outcome = "applied"
	// OutcomeNoop means the source already is in the target status.
	OutcomeNoop Outcome = "noop"
	// OutcomeStale means the event targets a status behind the current one.
	OutcomeStale Outcome = "stale"
)

type rule struct {
	to      enums.PaymentSourceStatus
	outcome Outcome
}

const (
	pending           = enums.PaymentSourceStatusPending
	authorized        = enums.PaymentSourceStatusAuthorized
	completed         = enums.PaymentSourceStatusCompleted
	partiallyRefunded = enums.PaymentSourceStatusPartiallyRefunded
	refunded          = enums.PaymentSourceStatusRefunded
	voided            = enums.PaymentSourceStatusVoided
	failed            = enums.PaymentSourceStatusFailed
)

func apply(to enums.PaymentSourceStatus) rule { return rule{to: to, outcome: OutcomeApplied} }
func noop(to enums.PaymentSourceStatus) rule { return rule{to: to, outcome: OutcomeNoop} }
func stale(to enums.PaymentSourceStatus) rule { return rule{to: to, outcome: OutcomeStale} }

// transitions is the full state x event table. Missing cells are invalid.
var transitions = map[Event]map[enums.PaymentSourceStatus]rule{
	EventAuthorized: {
		pending:           apply(authorized),
		authorized:        noop(authorized),
		completed:         stale(completed),
		partiallyRefunded: stale(partiallyRefunded),
		refunded:          stale(refunded),
		voided:            stale(voided),
	},
	EventCaptured: {
		pending:           apply(completed),
		authorized:        apply(completed),
		completed:         noop(completed),
		partiallyRefunded: stale(partiallyRefunded),
		refunded:          stale(refunded),
	},
	EventCaptureConfirmed: {
		pending:           apply(completed),
		authorized:        apply(completed),
		failed:            apply(completed),
		completed:         noop(completed),
		partiallyRefunded: stale(partiallyRefunded),
		refunded:          stale(refunded),
	},
	EventVoided: {
		authorized: apply(voided),
		voided:     noop(voided),
	},
	EventPartiallyRefunded: {
		completed:         apply(partiallyRefunded),
		partiallyRefunded: apply(partiallyRefunded),
		refunded:          stale(refunded),
	},
	EventRefunded: {
		completed:         apply(refunded),
		partiallyRefunded: apply(refunded),
		refunded:          noop(refunded),
	},
	EventFailed: {
		pending:           apply(failed),
		authorized:        apply(failed),
		failed:            noop(failed),
		completed:         stale(completed),
		partiallyRefunded: stale(partiallyRefunded),
		refunded:          stale(refunded),
		voided:            stale(voided),
	},
}

func init() {
	transitions[EventCaptureDenied] = transitions[EventFailed]
}

// Transition resolves the next status for event from the current status.
// Invalid combinations return a STATE_CONFLICT error.
func Transition(from enums.PaymentSourceStatus, event Event) (enums.PaymentSourceStatus, Outcome, error) {
	row, ok := transitions[event]
	if !ok {
		return from, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment source event %q", event))
	}
	r, ok := row[from]
	if !ok {
		return from, "", pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot apply %s to a %s payment source", event, from))
	}
	if r.outcome != OutcomeApplied {
		return from, r.outcome, nil
	}
	return r.to, r.outcome, nil
}
