// Package payments exposes operator endpoints that drive processor
// operations against a payment's source.
package payments

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-payments/api/middleware"
	"github.com/angelmondragon/marketplace-payments/api/responses"
	"github.com/angelmondragon/marketplace-payments/api/validators"
	"github.com/angelmondragon/marketplace-payments/internal/fees"
	"github.com/angelmondragon/marketplace-payments/internal/gateway"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
	"github.com/angelmondragon/marketplace-payments/pkg/outbox"
)

type paymentLoader interface {
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
}

type operation func(ctx context.Context, amountCents int64, source *models.PaymentSource, op gateway.OperationContext) (*gateway.Response, error)

type amountRequest struct {
	AmountCents *int64 `json:"amount_cents" validate:"omitempty,gt=0"`
}

type refundRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Reason      string `json:"reason" validate:"max=255"`
}

// OperationResponse describes the source after an operation.
type OperationResponse struct {
	PaymentID       uuid.UUID `json:"payment_id"`
	SourceID        uuid.UUID `json:"payment_source_id"`
	Status          string    `json:"status"`
	Outcome         string    `json:"outcome,omitempty"`
	AuthorizationID string    `json:"authorization_id,omitempty"`
	CaptureID       string    `json:"capture_id,omitempty"`
	RefundID        string    `json:"refund_id,omitempty"`
	Declined        bool      `json:"declined"`
	Message         string    `json:"message,omitempty"`
}

// Authorize places a hold for the payment amount, or amount_cents when given.
func Authorize(loader paymentLoader, gw gateway.Service, logg *logger.Logger) http.HandlerFunc {
	return amountHandler(loader, gw, logg, func(gw gateway.Service) operation { return gw.Authorize })
}

// Capture settles a previously authorized source.
func Capture(loader paymentLoader, gw gateway.Service, logg *logger.Logger) http.HandlerFunc {
	return amountHandler(loader, gw, logg, func(gw gateway.Service) operation { return gw.Capture })
}

// Void releases an authorization.
func Void(loader paymentLoader, gw gateway.Service, logg *logger.Logger) http.HandlerFunc {
	return amountHandler(loader, gw, logg, func(gw gateway.Service) operation { return gw.Void })
}

// Purchase authorizes and captures in one processor call.
func Purchase(loader paymentLoader, gw gateway.Service, logg *logger.Logger) http.HandlerFunc {
	return amountHandler(loader, gw, logg, func(gw gateway.Service) operation { return gw.Purchase })
}

// Refund credits part or all of a captured payment back to the buyer.
func Refund(loader paymentLoader, gw gateway.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if loader == nil || gw == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		payment, err := loadPayment(r, loader)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		opCtx := operationContext(ctx, payment)
		opCtx.Reason = req.Reason
		resp, err := gw.Credit(ctx, req.AmountCents, payment.Source, opCtx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toResponse(payment, resp))
	}
}

// Sync pulls the processor's view of the source and applies it.
func Sync(loader paymentLoader, gw gateway.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if loader == nil || gw == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		payment, err := loadPayment(r, loader)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp, err := gw.Sync(ctx, payment.Source)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toResponse(payment, resp))
	}
}

func amountHandler(loader paymentLoader, gw gateway.Service, logg *logger.Logger, pick func(gateway.Service) operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if loader == nil || gw == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		payment, err := loadPayment(r, loader)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req amountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		amount := fees.ToMinorUnits(payment.Amount, payment.Order.Currency)
		if req.AmountCents != nil {
			amount = *req.AmountCents
		}

		resp, err := pick(gw)(ctx, amount, payment.Source, operationContext(ctx, payment))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toResponse(payment, resp))
	}
}

func loadPayment(r *http.Request, loader paymentLoader) (*models.Payment, error) {
	id, err := validators.UUIDParam(r, "paymentId")
	if err != nil {
		return nil, err
	}
	payment, err := loader.GetPayment(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if payment.Source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment has no payment source")
	}
	if payment.Order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment order not loaded")
	}
	return payment, nil
}

func operationContext(ctx context.Context, payment *models.Payment) gateway.OperationContext {
	opCtx := gateway.OperationContext{
		PaymentID: payment.ID,
		RequestID: middleware.RequestIDFromContext(ctx),
	}
	if actor, ok := middleware.ActorFromContext(ctx); ok {
		opCtx.Actor = &outbox.ActorRef{ID: actor.ID.String(), Role: string(actor.Role)}
	}
	return opCtx
}

func toResponse(payment *models.Payment, resp *gateway.Response) OperationResponse {
	out := OperationResponse{
		PaymentID:       payment.ID,
		SourceID:        payment.Source.ID,
		Status:          resp.Status,
		AuthorizationID: resp.AuthorizationID,
		CaptureID:       resp.CaptureID,
		RefundID:        resp.RefundID,
		Declined:        resp.Declined,
		Message:         resp.Message,
	}
	if t := resp.Transition; t != nil {
		out.Status = string(t.To)
		out.Outcome = string(t.Outcome)
	}
	return out
}
