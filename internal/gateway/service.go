package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-payments/internal/fees"
	"github.com/angelmondragon/marketplace-payments/internal/payments"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
	"github.com/angelmondragon/marketplace-payments/pkg/metrics"
)

const defaultTimeout = 30 * time.Second

type paymentStore interface {
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Apply(ctx context.Context, sourceID uuid.UUID, change payments.Change) (*payments.Result, error)
}

type sellerDirectory interface {
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Seller, error)
}

// Service runs processor operations against payment sources.
type Service interface {
	Authorize(ctx context.Context, amountCents int64, source *models.PaymentSource, op OperationContext) (*Response, error)
	Capture(ctx context.Context, amountCents int64, source *models.PaymentSource, op OperationContext) (*Response, error)
	Void(ctx context.Context, amountCents int64, source *models.PaymentSource, op OperationContext) (*Response, error)
	Credit(ctx context.Context, amountCents int64, source *models.PaymentSource, op OperationContext) (*Response, error)
	Purchase(ctx context.Context, amountCents int64, source *models.PaymentSource, op OperationContext) (*Response, error)
	Sync(ctx context.Context, source *models.PaymentSource) (*Response, error)
}

// ServiceParams groups dependencies for the gateway service.
type ServiceParams struct {
	Processor Processor
	Payments  paymentStore
	Sellers   sellerDirectory
	Timeout   time.Duration
	Metrics   *metrics.GatewayMetrics
	Logger    *logger.Logger
}

type service struct {
	processor Processor
	payments  paymentStore
	sellers   sellerDirectory
	timeout   time.Duration
	metrics   *metrics.GatewayMetrics
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Processor == nil {
		return nil, fmt.Errorf("gateway processor required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("sellers service required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &service{
		processor: params.Processor,
		payments:  params.Payments,
		sellers:   params.Sellers,
		timeout:   timeout,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

func (s *service) Authorize(ctx context.Context, amountCents int64, source *models.PaymentSource, op OperationContext) (*Response, error) {
	return s.execute(ctx, OpAuthorize, amountCents, source, op)
}

func (s *service) Capture(ctx context.Context, amountCents int64, source *models.PaymentSource, op OperationContext) (*Response, error) {
	return s.execute(ctx, OpCapture, amountCents, source, op)
}

func (s *service) Void(ctx context.Context, amountCents int64, source *models.PaymentSource, op OperationContext) (*Response, error) {
	return s.execute(ctx, OpVoid, amountCents, source, op)
}

func (s *service) Credit(ctx context.Context, amountCents int64, source *models.PaymentSource, op OperationContext) (*Response, error) {
	return s.execute(ctx, OpCredit, amountCents, source, op)
}

func (s *service) Purchase(ctx context.Context, amountCents int64, source *models.PaymentSource, op OperationContext) (*Response, error) {
	return s.execute(ctx, OpPurchase, amountCents, source, op)
}

// Sync asks the processor for the source's authoritative status and applies
// it. A failed lookup never fails the source.
func (s *service) Sync(ctx context.Context, source *models.PaymentSource) (*Response, error) {
	if err := s.checkSource(source); err != nil {
		return nil, err
	}
	resp, err := s.call(ctx, &Request{Operation: OpSync, Source: source})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, failureReason(err))
	}
	event, ok := eventForState(resp.State)
	if !ok {
		return resp, nil
	}
	change := payments.Change{
		Event:           event,
		AuthorizationID: resp.AuthorizationID,
		CaptureID:       resp.CaptureID,
		RefundID:        resp.RefundID,
	}
	if event == payments.EventFailed {
		change.FailureReason = resp.Message
	}
	result, err := s.payments.Apply(ctx, source.ID, change)
	if err != nil {
		return nil, err
	}
	resp.Transition = result
	return resp, nil
}

func (s *service) execute(ctx context.Context, op Operation, amountCents int64, source *models.PaymentSource, opCtx OperationContext) (*Response, error) {
	if err := s.checkSource(source); err != nil {
		return nil, err
	}
	if op != OpVoid && amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"amount": "must be greater than 0"})
	}

	payment, err := s.payments.GetPayment(ctx, source.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment order not loaded")
	}
	if payment.Source.ID == source.ID {
		source = payment.Source
	}
	if opCtx.PaymentID == uuid.Nil {
		opCtx.PaymentID = payment.ID
	}
	if op == OpCredit && opCtx.RefundID == uuid.Nil {
		opCtx.RefundID = uuid.New()
	}
	currency := payment.Order.Currency
	amount := fees.FromMinorUnits(amountCents, currency)

	event, err := plannedEvent(op, amount, source, payment)
	if err != nil {
		return nil, err
	}
	to, outcome, err := payments.Transition(source.ResponseStatus, event)
	if err != nil {
		return nil, err
	}
	if outcome != payments.OutcomeApplied {
		if op == OpCredit {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot credit a %s payment source", source.ResponseStatus))
		}
		return settled(source, to, outcome), nil
	}

	req := &Request{
		Operation:   op,
		AmountCents: amountCents,
		Currency:    currency,
		Source:      source,
		Context:     opCtx,
	}
	if op == OpAuthorize || op == OpCapture || op == OpPurchase {
		req.Fees, err = s.platformFees(ctx, payment.Order)
		if err != nil {
			return nil, err
		}
	}

	resp, err := s.call(ctx, req)
	if err != nil {
		return nil, s.fail(ctx, op, source, opCtx, err)
	}

	change := payments.Change{Event: event, Actor: opCtx.Actor}
	switch op {
	case OpAuthorize:
		change.AuthorizationID = resp.AuthorizationID
	case OpCapture:
		change.CaptureID = resp.CaptureID
	case OpPurchase:
		change.AuthorizationID = resp.AuthorizationID
		change.CaptureID = resp.CaptureID
	case OpCredit:
		change.RefundID = resp.RefundID
		change.RefundedAmount = amount
		change.Refund = &models.Refund{
			ID:                opCtx.RefundID,
			PaymentID:         payment.ID,
			Amount:            amount,
			Reason:            optional(opCtx.Reason),
			ProcessorRefundID: optional(resp.RefundID),
		}
	}
	result, err := s.payments.Apply(ctx, source.ID, change)
	if err != nil {
		return nil, err
	}
	resp.Transition = result
	return resp, nil
}

// plannedEvent picks the state machine event a successful call would apply.
// Credits become a full refund once the refundable balance reaches zero, and
// only captured sources can be credited.
func plannedEvent(op Operation, amount decimal.Decimal, source *models.PaymentSource, payment *models.Payment) (payments.Event, error) {
	switch op {
	case OpAuthorize:
		return payments.EventAuthorized, nil
	case OpCapture, OpPurchase:
		return payments.EventCaptured, nil
	case OpVoid:
		return payments.EventVoided, nil
	case OpCredit:
		if source.ResponseStatus != enums.PaymentSourceStatusCompleted &&
			source.ResponseStatus != enums.PaymentSourceStatusPartiallyRefunded {
			return "", pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot credit a %s payment source", source.ResponseStatus))
		}
		remaining := payment.Amount.Sub(source.RefundedAmount)
		if amount.GreaterThan(remaining) {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"amount": "exceeds refundable balance of " + remaining.StringFixed(2)})
		}
		if amount.Equal(remaining) {
			return payments.EventRefunded, nil
		}
		return payments.EventPartiallyRefunded, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported gateway operation %q", op))
}

// call runs one processor request under the configured timeout. Declined
// responses come back as errors.
func (s *service) call(ctx context.Context, req *Request) (*Response, error) {
	processor := string(s.processor.Name())
	if s.logg != nil {
		ctx = s.logg.WithProcessorOp(ctx, processor, string(req.Operation))
		ctx = s.logg.WithPaymentID(ctx, req.Source.PaymentID.String())
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.dispatch(callCtx, req)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)):
		outcome = metrics.OutcomeTimeout
		err = &callError{timeout: true, message: fmt.Sprintf("payment processor did not respond within %s", s.timeout), cause: err}
	case err != nil:
		outcome = metrics.OutcomeError
		err = &callError{message: fmt.Sprintf("payment processor rejected the %s: %v", req.Operation, err), cause: err}
	case resp == nil:
		outcome = metrics.OutcomeError
		err = &callError{message: "payment processor returned no response"}
	case resp.Declined:
		outcome = metrics.OutcomeDeclined
		message := resp.Message
		if message == "" {
			message = resp.Status
		}
		err = &callError{message: fmt.Sprintf("payment was declined by the processor: %s", message)}
	}
	s.metrics.Observe(processor, string(req.Operation), outcome, elapsed)

	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"outcome": outcome, "elapsed_ms": elapsed.Milliseconds()})
		if err != nil {
			s.logg.Error(ctx, "gateway call failed", err)
		} else {
			s.logg.Info(ctx, "gateway call completed")
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *service) dispatch(ctx context.Context, req *Request) (*Response, error) {
	switch req.Operation {
	case OpAuthorize:
		return s.processor.Authorize(ctx, req)
	case OpCapture:
		return s.processor.Capture(ctx, req)
	case OpVoid:
		return s.processor.Void(ctx, req)
	case OpCredit:
		return s.processor.Credit(ctx, req)
	case OpPurchase:
		return s.processor.Purchase(ctx, req)
	case OpSync:
		return s.processor.Sync(ctx, req)
	}
	return nil, fmt.Errorf("unsupported gateway operation %q", req.Operation)
}

// fail records the failure on sources that have not settled yet and returns
// the typed gateway error.
func (s *service) fail(ctx context.Context, op Operation, source *models.PaymentSource, opCtx OperationContext, cause error) error {
	reason := failureReason(cause)
	switch source.ResponseStatus {
	case enums.PaymentSourceStatusPending, enums.PaymentSourceStatusAuthorized:
		_, err := s.payments.Apply(ctx, source.ID, payments.Change{
			Event:         payments.EventFailed,
			FailureReason: reason,
			Actor:         opCtx.Actor,
		})
		if err != nil && s.logg != nil {
			ctx = s.logg.WithProcessorOp(ctx, string(s.processor.Name()), string(op))
			s.logg.Error(ctx, "failed to record payment source failure", err)
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, cause, reason)
}

func (s *service) checkSource(source *models.PaymentSource) error {
	if source == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}
	if source.Processor != s.processor.Name() {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payment source belongs to %s, gateway is %s", source.Processor, s.processor.Name()))
	}
	return nil
}

func (s *service) platformFees(ctx context.Context, order *models.Order) ([]fees.PlatformFee, error) {
	var ids []uuid.UUID
	seen := map[uuid.UUID]struct{}{}
	for _, item := range order.LineItems {
		if item.SellerID == nil {
			continue
		}
		if _, ok := seen[*item.SellerID]; ok {
			continue
		}
		seen[*item.SellerID] = struct{}{}
		ids = append(ids, *item.SellerID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sellers, err := s.sellers.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out, err := fees.ForOrder(order, sellers)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute platform fees")
	}
	return out, nil
}

// settled answers a call whose outcome is already recorded without touching
// the processor.
func settled(source *models.PaymentSource, to enums.PaymentSourceStatus, outcome payments.Outcome) *Response {
	return &Response{
		AuthorizationID: deref(source.AuthorizationID),
		CaptureID:       deref(source.CaptureID),
		RefundID:        deref(source.RefundID),
		Status:          string(source.ResponseStatus),
		Transition: &payments.Result{
			Source:  source,
			From:    source.ResponseStatus,
			To:      to,
			Outcome: outcome,
		},
	}
}

func eventForState(state enums.PaymentSourceStatus) (payments.Event, bool) {
	switch state {
	case enums.PaymentSourceStatusAuthorized:
		return payments.EventAuthorized, true
	case enums.PaymentSourceStatusCompleted:
		return payments.EventCaptureConfirmed, true
	case enums.PaymentSourceStatusVoided:
		return payments.EventVoided, true
	case enums.PaymentSourceStatusRefunded:
		return payments.EventRefunded, true
	case enums.PaymentSourceStatusFailed:
		return payments.EventFailed, true
	}
	return "", false
}

type callError struct {
	timeout bool
	message string
	cause   error
}

func (e *callError) Error() string { return e.message }

func (e *callError) Unwrap() error { return e.cause }

// IsTimeout reports whether err came from a processor call that ran out of time.
func IsTimeout(err error) bool {
	var ce *callError
	return errors.As(err, &ce) && ce.timeout
}

func failureReason(err error) string {
	var ce *callError
	if errors.As(err, &ce) {
		return ce.message
	}
	return err.Error()
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
