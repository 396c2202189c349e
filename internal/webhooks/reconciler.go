package webhooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-payments/internal/payments"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
)

// HandlerFunc applies one event type. Returning nil reports success.
type HandlerFunc func(ctx context.Context, event Event) error

type paymentSources interface {
	Resolve(ctx context.Context, lookup payments.Lookup) (*models.PaymentSource, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Apply(ctx context.Context, sourceID uuid.UUID, change payments.Change) (*payments.Result, error)
	RefundRecorded(ctx context.Context, processorRefundID string) (bool, error)
}

type shipmentCanceler interface {
	CancelReadyForOrder(ctx context.Context, orderID uuid.UUID) (int, error)
}

// Reconciler maps each event type to the transition it implies.
type Reconciler struct {
	payments  paymentSources
	shipments shipmentCanceler
	handlers  map[enums.WebhookEventType]HandlerFunc
	logg      *logger.Logger
}

func NewReconciler(paymentSvc paymentSources, shipmentSvc shipmentCanceler, logg *logger.Logger) (*Reconciler, error) {
	if paymentSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if shipmentSvc == nil {
		return nil, fmt.Errorf("shipments service required")
	}
	r := &Reconciler{payments: paymentSvc, shipments: shipmentSvc, logg: logg}
	r.handlers = map[enums.WebhookEventType]HandlerFunc{
		enums.WebhookEventCaptureCompleted:    r.captureCompleted,
		enums.WebhookEventCaptureDenied:       r.captureDenied,
		enums.WebhookEventCaptureRefunded:     r.captureRefunded,
		enums.WebhookEventAuthorizationVoided: r.authorizationVoided,
	}
	return r, nil
}

// Handle never returns an error. Event types without a handler succeed so
// the processor stops redelivering them.
func (r *Reconciler) Handle(ctx context.Context, event Event) Result {
	handler, ok := r.handlers[event.Type]
	if !ok {
		if r.logg != nil {
			r.logg.Debug(r.logg.WithField(ctx, "event_type", event.RawType), "webhook event ignored")
		}
		return succeeded()
	}
	if err := handler(ctx, event); err != nil {
		return failedWith(err.Error())
	}
	return succeeded()
}

func (r *Reconciler) captureCompleted(ctx context.Context, event Event) error {
	source, err := r.resolve(ctx, event)
	if err != nil {
		return err
	}
	_, err = r.payments.Apply(ctx, source.ID, payments.Change{
		Event:     payments.EventCaptureConfirmed,
		CaptureID: event.CaptureID,
	})
	return err
}

// captureDenied fails the source and stops fulfilment of the order.
func (r *Reconciler) captureDenied(ctx context.Context, event Event) error {
	source, err := r.resolve(ctx, event)
	if err != nil {
		return err
	}
	result, err := r.payments.Apply(ctx, source.ID, payments.Change{
		Event:         payments.EventCaptureDenied,
		FailureReason: fmt.Sprintf("capture %s denied by %s", event.ResourceID, event.Provider),
	})
	if err != nil {
		return err
	}
	if result.Outcome == payments.OutcomeStale {
		return nil
	}
	payment, err := r.payments.GetPayment(ctx, source.PaymentID)
	if err != nil {
		return err
	}
	canceled, err := r.shipments.CancelReadyForOrder(ctx, payment.OrderID)
	if err != nil {
		return err
	}
	if r.logg != nil && canceled > 0 {
		ctx = r.logg.WithPaymentID(ctx, payment.ID.String())
		r.logg.Info(r.logg.WithField(ctx, "canceled_shipments", canceled), "shipments canceled after capture denial")
	}
	return nil
}

// captureRefunded adds the refund to the source's balance. Refunds already
// recorded under the processor's refund id are skipped; a delivery without an
// amount refunds the remaining balance.
func (r *Reconciler) captureRefunded(ctx context.Context, event Event) error {
	recorded, err := r.payments.RefundRecorded(ctx, event.RefundID)
	if err != nil {
		return err
	}
	if recorded {
		return nil
	}
	source, err := r.resolve(ctx, event)
	if err != nil {
		return err
	}
	change := payments.Change{
		Event:          payments.EventPartiallyRefunded,
		RefundID:       event.RefundID,
		RefundedAmount: event.RefundAmount,
	}
	if !event.RefundAmount.IsPositive() {
		change.Event = payments.EventRefunded
	}
	if event.RefundID != "" {
		refundID := event.RefundID
		change.Refund = &models.Refund{
			PaymentID:         source.PaymentID,
			Amount:            event.RefundAmount,
			ProcessorRefundID: &refundID,
		}
	}
	_, err = r.payments.Apply(ctx, source.ID, change)
	return err
}

func (r *Reconciler) authorizationVoided(ctx context.Context, event Event) error {
	source, err := r.resolve(ctx, event)
	if err != nil {
		return err
	}
	_, err = r.payments.Apply(ctx, source.ID, payments.Change{Event: payments.EventVoided})
	return err
}

func (r *Reconciler) resolve(ctx context.Context, event Event) (*models.PaymentSource, error) {
	if event.ResourceID == "" {
		return nil, errors.New("webhook resource id missing")
	}
	return r.payments.Resolve(ctx, event.lookup())
}
