// Package squaregw maps gateway operations onto Square's payments API. The
// source's external order id holds the buyer's card token; the Square payment
// id doubles as authorization and capture id.
package squaregw

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/marketplace-payments/internal/fees"
	"github.com/angelmondragon/marketplace-payments/internal/gateway"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/square"
)

// Square payment statuses.
const (
	statusApproved  = "APPROVED"
	statusCompleted = "COMPLETED"
	statusCanceled  = "CANCELED"
	statusFailed    = "FAILED"
	statusRejected  = "REJECTED"
)

type Processor struct {
	client     SquarePaymentsClient
	locationID string
}

func New(client SquarePaymentsClient, locationID string) (*Processor, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &Processor{client: client, locationID: strings.TrimSpace(locationID)}, nil
}

func (p *Processor) Name() enums.PaymentProcessor {
	return enums.PaymentProcessorSquare
}

func (p *Processor) Authorize(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	payment, err := p.client.Create(ctx, p.createParams(req, false))
	if err != nil {
		return nil, err
	}
	return &gateway.Response{
		AuthorizationID: payment.ID,
		Status:          payment.Status,
		Declined:        declined(payment.Status),
		Message:         message(payment),
	}, nil
}

func (p *Processor) Purchase(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	payment, err := p.client.Create(ctx, p.createParams(req, true))
	if err != nil {
		return nil, err
	}
	return &gateway.Response{
		AuthorizationID: payment.ID,
		CaptureID:       payment.ID,
		Status:          payment.Status,
		Declined:        declined(payment.Status),
		Message:         message(payment),
	}, nil
}

// Capture completes the delayed payment. The app fee was fixed when the
// payment was created.
func (p *Processor) Capture(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	id := deref(req.Source.AuthorizationID)
	if id == "" {
		return nil, fmt.Errorf("square payment id missing on payment source")
	}
	payment, err := p.client.Complete(ctx, id)
	if err != nil {
		return nil, err
	}
	return &gateway.Response{
		CaptureID: payment.ID,
		Status:    payment.Status,
		Declined:  declined(payment.Status),
		Message:   message(payment),
	}, nil
}

func (p *Processor) Void(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	id := deref(req.Source.AuthorizationID)
	if id == "" {
		return nil, fmt.Errorf("square payment id missing on payment source")
	}
	payment, err := p.client.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	return &gateway.Response{AuthorizationID: payment.ID, Status: payment.Status}, nil
}

func (p *Processor) Credit(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	id := deref(req.Source.CaptureID)
	if id == "" {
		return nil, fmt.Errorf("square payment id missing on payment source")
	}
	refund, err := p.client.Refund(ctx, square.RefundParams{
		PaymentID:      id,
		AmountCents:    req.AmountCents,
		Currency:       req.Currency,
		Reason:         req.Context.Reason,
		IdempotencyKey: req.Context.RefundID.String(),
	})
	if err != nil {
		return nil, err
	}
	return &gateway.Response{
		RefundID: refund.ID,
		Status:   refund.Status,
		Declined: declined(refund.Status),
		Message:  message(refund),
	}, nil
}

func (p *Processor) Sync(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	id := deref(req.Source.CaptureID)
	if id == "" {
		id = deref(req.Source.AuthorizationID)
	}
	if id == "" {
		return &gateway.Response{State: enums.PaymentSourceStatusPending}, nil
	}
	payment, err := p.client.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &gateway.Response{Status: payment.Status, AuthorizationID: payment.ID}
	switch payment.Status {
	case statusApproved:
		resp.State = enums.PaymentSourceStatusAuthorized
	case statusCompleted:
		resp.State = enums.PaymentSourceStatusCompleted
		resp.CaptureID = payment.ID
	case statusCanceled:
		resp.State = enums.PaymentSourceStatusVoided
	case statusFailed:
		resp.State = enums.PaymentSourceStatusFailed
		resp.Message = "square payment failed"
	default:
		resp.State = enums.PaymentSourceStatusPending
	}
	return resp, nil
}

func (p *Processor) createParams(req *gateway.Request, autocomplete bool) square.PaymentCreateParams {
	return square.PaymentCreateParams{
		AmountCents:    req.AmountCents,
		AppFeeCents:    fees.ToMinorUnits(fees.Total(req.Fees), req.Currency),
		Currency:       req.Currency,
		LocationID:     p.locationID,
		SourceID:       req.Source.ExternalOrderID,
		Autocomplete:   autocomplete,
		IdempotencyKey: idempotencyKey(req),
		ReferenceID:    req.Context.PaymentID.String(),
	}
}

func idempotencyKey(req *gateway.Request) string {
	if req.Context.RequestID != "" {
		return req.Context.RequestID
	}
	return fmt.Sprintf("%s-%s", req.Operation, req.Source.ID)
}

func declined(status string) bool {
	switch status {
	case statusFailed, statusRejected, statusCanceled:
		return true
	}
	return false
}

func message(p *SquarePayment) string {
	if !declined(p.Status) {
		return ""
	}
	return fmt.Sprintf("square payment %s is %s", p.ID, strings.ToLower(p.Status))
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
