// Package gateway drives payment sources through a multi-party processor and
// records each outcome on the source state machine.
package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-payments/internal/fees"
	"github.com/angelmondragon/marketplace-payments/internal/payments"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/outbox"
)

// Operation names a processor call.
type Operation string

const (
	OpAuthorize Operation = "authorize"
	OpCapture   Operation = "capture"
	OpVoid      Operation = "void"
	OpCredit    Operation = "credit"
	OpPurchase  Operation = "purchase"
	OpSync      Operation = "sync"
)

// OperationContext carries what a call needs to know about its origin.
// PaymentID defaults to the source's payment; RefundID is generated for
// credits when blank and doubles as the processor idempotency key.
type OperationContext struct {
	PaymentID            uuid.UUID
	RefundID             uuid.UUID
	RequestID            string
	AuthAssertionSubject string
	Reason               string
	Actor                *outbox.ActorRef
}

// Request is what a Processor receives for a single call.
type Request struct {
	Operation   Operation
	AmountCents int64
	Currency    string
	Source      *models.PaymentSource
	Fees        []fees.PlatformFee
	Context     OperationContext
}

// Response is the processor's answer. Declined marks a rejection delivered as
// a successful HTTP exchange. State is only set by Sync.
type Response struct {
	AuthorizationID string
	CaptureID       string
	RefundID        string
	Status          string
	State           enums.PaymentSourceStatus
	Declined        bool
	Message         string
	Transition      *payments.Result
}

// Processor is implemented by each provider adapter.
type Processor interface {
	Name() enums.PaymentProcessor
	Authorize(ctx context.Context, req *Request) (*Response, error)
	Capture(ctx context.Context, req *Request) (*Response, error)
	Void(ctx context.Context, req *Request) (*Response, error)
	Credit(ctx context.Context, req *Request) (*Response, error)
	Purchase(ctx context.Context, req *Request) (*Response, error)
	Sync(ctx context.Context, req *Request) (*Response, error)
}
