// Package payments owns the payment source state machine and its persistence.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
	"github.com/angelmondragon/marketplace-payments/pkg/outbox"
	"github.com/angelmondragon/marketplace-payments/pkg/outbox/payloads"
)

const maxCASAttempts = 3

var errCASConflict = errors.New("payment source status changed concurrently")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repository interface {
	FindSourceByID(ctx context.Context, id uuid.UUID) (*models.PaymentSource, error)
	FindSourceByIDTx(tx *gorm.DB, id uuid.UUID) (*models.PaymentSource, error)
	FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindSourceByLookup(ctx context.Context, lookup Lookup) (*models.PaymentSource, error)
	ListForReconcile(ctx context.Context, statuses []enums.PaymentSourceStatus, olderThan time.Time, limit int) ([]models.PaymentSource, error)
	FindPaymentTx(tx *gorm.DB, id uuid.UUID) (*models.Payment, error)
	CompareAndSwapTx(tx *gorm.DB, expected *models.PaymentSource, updates map[string]any) (bool, error)
	CreateRefundTx(tx *gorm.DB, refund *models.Refund) error
	RefundExists(ctx context.Context, processorRefundID string) (bool, error)
	RefundExistsTx(tx *gorm.DB, processorRefundID string) (bool, error)
}

// Change is an event plus the processor data that came with it.
// Identifiers are only stored when the source has none yet. For refund events
// the stored balance decides between partial and full refund; a zero
// RefundedAmount on EventRefunded refunds whatever balance is left.
type Change struct {
	Event           Event
	AuthorizationID string
	CaptureID       string
	RefundID        string
	FailureReason   string
	RefundedAmount  decimal.Decimal
	Refund          *models.Refund
	Actor           *outbox.ActorRef
}

// Result describes what Apply did. Source reflects the stored row.
type Result struct {
	Source  *models.PaymentSource
	From    enums.PaymentSourceStatus
	To      enums.PaymentSourceStatus
	Outcome Outcome
}

// Changed reports whether the status moved.
func (r *Result) Changed() bool {
	return r != nil && r.Outcome == OutcomeApplied
}

type Service interface {
	GetSource(ctx context.Context, id uuid.UUID) (*models.PaymentSource, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Resolve(ctx context.Context, lookup Lookup) (*models.PaymentSource, error)
	ListForReconcile(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentSource, error)
	Apply(ctx context.Context, sourceID uuid.UUID, change Change) (*Result, error)
	RefundRecorded(ctx context.Context, processorRefundID string) (bool, error)
}

type service struct {
	db     txRunner
	repo   repository
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(db txRunner, repo repository, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		db:     db,
		repo:   repo,
		outbox: emitter,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) GetSource(ctx context.Context, id uuid.UUID) (*models.PaymentSource, error) {
	source, err := s.repo.FindSourceByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err, "payment source")
	}
	return source, nil
}

func (s *service) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindPayment(ctx, id)
	if err != nil {
		return nil, mapLoadError(err, "payment")
	}
	if payment.Source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment source not found")
	}
	return payment, nil
}

func (s *service) Resolve(ctx context.Context, lookup Lookup) (*models.PaymentSource, error) {
	source, err := s.repo.FindSourceByLookup(ctx, lookup)
	if err != nil {
		return nil, mapLoadError(err, "payment source")
	}
	return source, nil
}

// ListForReconcile returns pending, authorized and failed sources that may have settled
// at the processor since they were last touched.
func (s *service) ListForReconcile(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentSource, error) {
	rows, err := s.repo.ListForReconcile(ctx, []enums.PaymentSourceStatus{pending, authorized, failed}, olderThan, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment sources")
	}
	return rows, nil
}

// RefundRecorded reports whether a refund issued through this service already
// carries the processor refund id.
func (s *service) RefundRecorded(ctx context.Context, processorRefundID string) (bool, error) {
	if processorRefundID == "" {
		return false, nil
	}
	ok, err := s.repo.RefundExists(ctx, processorRefundID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
	}
	return ok, nil
}

// Apply runs the change through the transition table and persists it with a
// compare-and-swap on response_status, retrying when another writer won.
// Stale and no-op events succeed without a status write.
func (s *service) Apply(ctx context.Context, sourceID uuid.UUID, change Change) (*Result, error) {
	for attempt := 1; attempt <= maxCASAttempts; attempt++ {
		var result *Result
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			result, err = s.applyTx(ctx, tx, sourceID, change)
			return err
		})
		if errors.Is(err, errCASConflict) {
			s.warn(ctx, sourceID, change.Event, attempt)
			continue
		}
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				return nil, typed
			}
			return nil, mapLoadError(err, "payment source")
		}
		s.logResult(ctx, change.Event, result)
		return result, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment source changed concurrently; retry")
}

func (s *service) applyTx(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, change Change) (*Result, error) {
	source, err := s.repo.FindSourceByIDTx(tx, sourceID)
	if err != nil {
		return nil, err
	}
	if change.Refund != nil && deref(change.Refund.ProcessorRefundID) != "" {
		recorded, err := s.repo.RefundExistsTx(tx, *change.Refund.ProcessorRefundID)
		if err != nil {
			return nil, err
		}
		if recorded {
			return &Result{Source: source, From: source.ResponseStatus, To: source.ResponseStatus, Outcome: OutcomeNoop}, nil
		}
	}

	event := change.Event
	refundedTotal := source.RefundedAmount
	if isRefundEvent(event) && refundable(source.ResponseStatus) {
		event, refundedTotal, err = s.settleRefund(tx, source, &change)
		if err != nil {
			return nil, err
		}
	}

	to, outcome, err := Transition(source.ResponseStatus, event)
	if err != nil {
		return nil, err
	}
	result := &Result{Source: source, From: source.ResponseStatus, To: to, Outcome: outcome}
	if outcome == OutcomeStale {
		return result, nil
	}

	updates := identifierUpdates(source, change)
	if outcome == OutcomeNoop && len(updates) == 0 {
		return result, nil
	}
	if outcome == OutcomeApplied {
		updates["response_status"] = to
		if to == failed && change.FailureReason != "" {
			updates["failure_reason"] = change.FailureReason
		}
		if !refundedTotal.Equal(source.RefundedAmount) {
			updates["refunded_amount"] = refundedTotal
		}
	}
	updates["updated_at"] = s.now()

	swapped, err := s.repo.CompareAndSwapTx(tx, source, updates)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, errCASConflict
	}
	assignUpdates(source, updates)

	if outcome != OutcomeApplied {
		return result, nil
	}
	if change.Refund != nil {
		if err := s.repo.CreateRefundTx(tx, change.Refund); err != nil {
			return nil, err
		}
	}
	return result, s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentSourceStateChanged,
		AggregateType: enums.AggregatePaymentSource,
		AggregateID:   source.ID,
		Actor:         change.Actor,
		Data: payloads.PaymentSourceStateChanged{
			PaymentSourceID: source.ID,
			PaymentID:       source.PaymentID,
			Processor:       source.Processor,
			Event:           string(event),
			From:            result.From,
			To:              to,
			AuthorizationID: deref(source.AuthorizationID),
			CaptureID:       deref(source.CaptureID),
			RefundID:        deref(source.RefundID),
			FailureReason:   deref(source.FailureReason),
		},
	})
}

// settleRefund adds the refunded amount to the balance read in this
// transaction and picks partially_refunded or refunded from the result.
func (s *service) settleRefund(tx *gorm.DB, source *models.PaymentSource, change *Change) (Event, decimal.Decimal, error) {
	payment, err := s.repo.FindPaymentTx(tx, source.PaymentID)
	if err != nil {
		return "", decimal.Zero, err
	}
	remaining := payment.Amount.Sub(source.RefundedAmount)
	amount := change.RefundedAmount
	if !amount.IsPositive() {
		if change.Event != EventRefunded {
			return change.Event, source.RefundedAmount, nil
		}
		amount = remaining
	}
	if amount.GreaterThan(remaining) {
		return "", decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"amount": "exceeds refundable balance of " + remaining.StringFixed(2)})
	}
	if change.Refund != nil && !change.Refund.Amount.IsPositive() {
		change.Refund.Amount = amount
	}
	total := source.RefundedAmount.Add(amount)
	if total.Equal(payment.Amount) {
		return EventRefunded, total, nil
	}
	return EventPartiallyRefunded, total, nil
}

func isRefundEvent(event Event) bool {
	return event == EventPartiallyRefunded || event == EventRefunded
}

func refundable(status enums.PaymentSourceStatus) bool {
	return status == completed || status == partiallyRefunded
}

func identifierUpdates(source *models.PaymentSource, change Change) map[string]any {
	updates := map[string]any{}
	if change.AuthorizationID != "" && deref(source.AuthorizationID) == "" {
		updates["authorization_id"] = change.AuthorizationID
	}
	if change.CaptureID != "" && deref(source.CaptureID) == "" {
		updates["capture_id"] = change.CaptureID
	}
	if change.RefundID != "" && deref(source.RefundID) == "" {
		updates["refund_id"] = change.RefundID
	}
	return updates
}

func assignUpdates(source *models.PaymentSource, updates map[string]any) {
	for key, value := range updates {
		switch key {
		case "authorization_id":
			source.AuthorizationID = strPtr(value.(string))
		case "capture_id":
			source.CaptureID = strPtr(value.(string))
		case "refund_id":
			source.RefundID = strPtr(value.(string))
		case "failure_reason":
			source.FailureReason = strPtr(value.(string))
		case "response_status":
			source.ResponseStatus = value.(enums.PaymentSourceStatus)
		case "refunded_amount":
			source.RefundedAmount = value.(decimal.Decimal)
		case "updated_at":
			source.UpdatedAt = value.(time.Time)
		}
	}
}

func (s *service) warn(ctx context.Context, sourceID uuid.UUID, event Event, attempt int) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_source_id": sourceID.String(),
		"event":             event,
		"attempt":           attempt,
	})
	s.logg.Warn(ctx, "payment source compare-and-swap lost; retrying")
}

func (s *service) logResult(ctx context.Context, event Event, result *Result) {
	if s.logg == nil || result == nil {
		return
	}
	ctx = s.logg.WithPaymentID(ctx, result.Source.PaymentID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_source_id": result.Source.ID.String(),
		"event":             event,
		"from":              result.From,
		"to":                result.To,
		"outcome":           result.Outcome,
	})
	if result.Outcome == OutcomeStale {
		s.logg.Info(ctx, "stale payment source event ignored")
		return
	}
	s.logg.Info(ctx, "payment source event applied")
}

func mapLoadError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func strPtr(v string) *string {
	return &v
}
