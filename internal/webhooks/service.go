package webhooks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
	"github.com/angelmondragon/marketplace-payments/pkg/metrics"
	"github.com/angelmondragon/marketplace-payments/pkg/outbox"
	"github.com/angelmondragon/marketplace-payments/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type handler interface {
	Handle(ctx context.Context, event Event) Result
}

// ServiceParams groups dependencies for delivery processing.
type ServiceParams struct {
	Reconciler handler
	Guard      *IdempotencyGuard
	DB         txRunner
	Outbox     outbox.Emitter
	Metrics    *metrics.WebhookMetrics
	Logger     *logger.Logger
}

// Service deduplicates deliveries, reconciles them and queues an alert for
// every delivery that could not be applied.
type Service struct {
	reconciler handler
	guard      *IdempotencyGuard
	db         txRunner
	outbox     outbox.Emitter
	metrics    *metrics.WebhookMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, fmt.Errorf("webhook reconciler required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Service{
		reconciler: params.Reconciler,
		guard:      params.Guard,
		db:         params.DB,
		outbox:     params.Outbox,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// Receive processes one delivery. Duplicates succeed without reprocessing.
// A failed delivery releases its guard key so the processor's retry runs.
func (s *Service) Receive(ctx context.Context, event Event) Result {
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"provider":    event.Provider,
			"delivery_id": event.DeliveryID,
			"event_type":  event.RawType,
		})
	}
	scope := string(event.Provider)

	if s.guard != nil && event.DeliveryID != "" {
		duplicate, err := s.guard.CheckAndMark(ctx, scope, event.DeliveryID)
		if err != nil {
			s.logError(ctx, "webhook idempotency check failed", err)
		} else if duplicate {
			if s.logg != nil {
				s.logg.Info(ctx, "duplicate webhook delivery ignored")
			}
			return succeeded()
		}
	}

	result := s.reconciler.Handle(ctx, event)
	s.metrics.Observe(scope, event.RawType, result.Result)
	if result.Result {
		return result
	}

	if s.guard != nil && event.DeliveryID != "" {
		if err := s.guard.Release(ctx, scope, event.DeliveryID); err != nil {
			s.logError(ctx, "release webhook idempotency key", err)
		}
	}
	if err := s.queueAlert(ctx, event, result); err != nil {
		s.logError(ctx, "queue webhook reconciliation alert", err)
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "errors", result.Errors), "webhook reconciliation failed")
	}
	return result
}

func (s *Service) queueAlert(ctx context.Context, event Event, result Result) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWebhookReconciliationFailed,
			AggregateType: enums.AggregateWebhookDelivery,
			AggregateID:   DeliveryAggregateID(event.Provider, event.DeliveryID),
			Data: payloads.WebhookReconciliationFailed{
				Provider:   event.Provider,
				DeliveryID: event.DeliveryID,
				EventType:  event.RawType,
				ResourceID: event.ResourceID,
				Errors:     result.Errors,
			},
		})
	})
}

// DeliveryAggregateID derives a stable aggregate id from the provider's delivery id.
func DeliveryAggregateID(provider enums.PaymentProcessor, deliveryID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(provider)+":"+deliveryID))
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
