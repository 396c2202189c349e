// Package paypalgw adapts the PayPal v2 multi-party API to gateway.Processor.
package paypalgw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/marketplace-payments/internal/fees"
	"github.com/angelmondragon/marketplace-payments/internal/gateway"
	"github.com/angelmondragon/marketplace-payments/pkg/config"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
	"github.com/angelmondragon/marketplace-payments/pkg/paypal"
)

const disbursementInstant = "INSTANT"

// Processor issues PayPal requests through an Executor.
type Processor struct {
	exec               paypal.Executor
	clientID           string
	platformMerchantID string
	logg               *logger.Logger
}

func New(exec paypal.Executor, cfg config.PayPalConfig, logg *logger.Logger) (*Processor, error) {
	if exec == nil {
		return nil, fmt.Errorf("paypal executor required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("paypal client id required")
	}
	if strings.TrimSpace(cfg.PlatformMerchantID) == "" {
		return nil, fmt.Errorf("paypal platform merchant id required for void auth assertions")
	}
	return &Processor{
		exec:               exec,
		clientID:           strings.TrimSpace(cfg.ClientID),
		platformMerchantID: strings.TrimSpace(cfg.PlatformMerchantID),
		logg:               logg,
	}, nil
}

func (p *Processor) Name() enums.PaymentProcessor {
	return enums.PaymentProcessorPayPal
}

// Authorize places an authorization on the buyer-approved order.
func (p *Processor) Authorize(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	httpReq, err := paypal.AuthorizeOrder(req.Source.ExternalOrderID, req.Context.RequestID)
	if err != nil {
		return nil, err
	}
	return p.orderOutcome(ctx, httpReq)
}

// Purchase captures the order in one step.
func (p *Processor) Purchase(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	httpReq, err := paypal.CaptureOrder(req.Source.ExternalOrderID, req.Context.RequestID)
	if err != nil {
		return nil, err
	}
	return p.orderOutcome(ctx, httpReq)
}

// Capture settles an authorization and withholds one platform fee per seller.
func (p *Processor) Capture(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	body := paypal.CaptureRequest{
		Amount:       money(req.AmountCents, req.Currency),
		InvoiceID:    req.Context.PaymentID.String(),
		FinalCapture: true,
	}
	if len(req.Fees) > 0 {
		instruction := &paypal.PaymentInstruction{DisbursementMode: disbursementInstant}
		for _, fee := range req.Fees {
			instruction.PlatformFees = append(instruction.PlatformFees, paypal.PlatformFee{
				Amount: paypal.Money{CurrencyCode: fee.CurrencyCode, Value: fee.String()},
			})
		}
		body.PaymentInstruction = instruction
	}
	httpReq, err := paypal.CaptureAuthorization(deref(req.Source.AuthorizationID), req.Context.RequestID, body)
	if err != nil {
		return nil, err
	}
	resp, err := p.exec.Execute(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	var capture paypal.Capture
	if err := resp.Decode(&capture); err != nil {
		return nil, err
	}
	out := paypal.Outcome{Kind: paypal.OutcomeCapture, ID: capture.ID, Status: capture.Status}
	return &gateway.Response{
		CaptureID: capture.ID,
		Status:    capture.Status,
		Declined:  out.Declined(),
		Message:   declineMessage(out),
	}, nil
}

// Void releases the authorization on behalf of the seller identified by the
// auth assertion subject, falling back to the platform merchant.
func (p *Processor) Void(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	subject := strings.TrimSpace(req.Context.AuthAssertionSubject)
	if subject == "" {
		subject = p.platformMerchantID
	}
	assertion, err := paypal.AuthAssertion(p.clientID, subject)
	if err != nil {
		return nil, err
	}
	httpReq, err := paypal.VoidAuthorization(deref(req.Source.AuthorizationID), assertion)
	if err != nil {
		return nil, err
	}
	resp, err := p.exec.Execute(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	var auth paypal.Authorization
	if err := resp.Decode(&auth); err != nil {
		return nil, err
	}
	status := auth.Status
	if status == "" {
		status = paypal.StatusVoided
	}
	return &gateway.Response{AuthorizationID: deref(req.Source.AuthorizationID), Status: status}, nil
}

// Credit refunds part or all of the capture. The local refund id keys the
// request so a retried refund is not paid twice.
func (p *Processor) Credit(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	httpReq, err := paypal.RefundCapture(deref(req.Source.CaptureID), req.Context.RefundID.String(), paypal.RefundRequest{
		Amount:      money(req.AmountCents, req.Currency),
		InvoiceID:   req.Context.RefundID.String(),
		NoteToPayer: req.Context.Reason,
	})
	if err != nil {
		return nil, err
	}
	resp, err := p.exec.Execute(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	var refund paypal.Refund
	if err := resp.Decode(&refund); err != nil {
		return nil, err
	}
	declined := strings.EqualFold(refund.Status, paypal.StatusFailed)
	return &gateway.Response{
		RefundID: refund.ID,
		Status:   refund.Status,
		Declined: declined,
		Message:  "refund " + strings.ToLower(refund.Status),
	}, nil
}

// Sync reads the order and reports the status PayPal holds for it.
func (p *Processor) Sync(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	httpReq, err := paypal.GetOrder(req.Source.ExternalOrderID)
	if err != nil {
		return nil, err
	}
	resp, err := p.exec.Execute(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	var order paypal.Order
	if err := resp.Decode(&order); err != nil {
		return nil, err
	}
	out, err := paypal.ResolveOutcome(&order)
	if errors.Is(err, paypal.ErrNoPaymentOutcome) {
		return &gateway.Response{Status: order.Status, State: enums.PaymentSourceStatusPending}, nil
	}
	if err != nil {
		return nil, err
	}
	result := &gateway.Response{Status: out.Status, State: stateFor(out)}
	switch out.Kind {
	case paypal.OutcomeCapture:
		result.CaptureID = out.ID
		result.AuthorizationID = authorizationID(&order)
	case paypal.OutcomeAuthorization:
		result.AuthorizationID = out.ID
	}
	if result.State == enums.PaymentSourceStatusFailed {
		result.Message = declineMessage(out)
	}
	return result, nil
}

func (p *Processor) orderOutcome(ctx context.Context, httpReq *paypal.Request) (*gateway.Response, error) {
	resp, err := p.exec.Execute(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	var order paypal.Order
	if err := resp.Decode(&order); err != nil {
		return nil, err
	}
	out, err := paypal.ResolveOutcome(&order)
	if err != nil {
		return nil, err
	}
	result := &gateway.Response{
		Status:   out.Status,
		Declined: out.Declined(),
		Message:  declineMessage(out),
	}
	switch out.Kind {
	case paypal.OutcomeCapture:
		result.CaptureID = out.ID
		result.AuthorizationID = authorizationID(&order)
	case paypal.OutcomeAuthorization:
		result.AuthorizationID = out.ID
	}
	if p.logg != nil {
		ctx = p.logg.WithFields(ctx, map[string]any{"paypal_order_id": order.ID, "outcome": out.Kind, "status": out.Status})
		p.logg.Info(ctx, "paypal order outcome")
	}
	return result, nil
}

func stateFor(out paypal.Outcome) enums.PaymentSourceStatus {
	status := strings.ToUpper(out.Status)
	if out.Kind == paypal.OutcomeCapture {
		switch status {
		case paypal.StatusCompleted:
			return enums.PaymentSourceStatusCompleted
		case paypal.StatusRefunded:
			return enums.PaymentSourceStatusRefunded
		case paypal.StatusDeclined, paypal.StatusFailed:
			return enums.PaymentSourceStatusFailed
		}
		return enums.PaymentSourceStatusPending
	}
	switch status {
	case paypal.StatusCreated, paypal.StatusPending:
		return enums.PaymentSourceStatusAuthorized
	case paypal.StatusCaptured:
		return enums.PaymentSourceStatusCompleted
	case paypal.StatusVoided:
		return enums.PaymentSourceStatusVoided
	case paypal.StatusDenied, paypal.StatusDeclined, paypal.StatusFailed:
		return enums.PaymentSourceStatusFailed
	}
	return enums.PaymentSourceStatusPending
}

func authorizationID(order *paypal.Order) string {
	for _, unit := range order.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		if n := len(unit.Payments.Authorizations); n > 0 {
			return unit.Payments.Authorizations[n-1].ID
		}
	}
	return ""
}

func declineMessage(out paypal.Outcome) string {
	if !out.Declined() {
		return ""
	}
	return fmt.Sprintf("%s %s was %s", out.Kind, out.ID, strings.ToLower(out.Status))
}

func money(cents int64, currency string) *paypal.Money {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	return &paypal.Money{
		CurrencyCode: currency,
		Value:        fees.FromMinorUnits(cents, currency).StringFixed(fees.Precision(currency)),
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
