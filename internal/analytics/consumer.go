// Package analytics exports payment state transitions from the payment-events
// topic into BigQuery.
package analytics

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
	"github.com/angelmondragon/marketplace-payments/pkg/redis"
)

const idempotencyScope = "analytics"

type rowWriter interface {
	Insert(ctx context.Context, row PaymentStateRow) error
}

type receiver interface {
	Receive(ctx context.Context, fn func(context.Context, *gcppubsub.Message)) error
}

type ConsumerParams struct {
	Subscription receiver
	Writer       rowWriter
	Store        redis.IdempotencyStore
	ProcessedTTL time.Duration
	Logger       *logger.Logger
}

// Consumer acks every message it cannot use and nacks only when the row
// could not be written, so Pub/Sub redelivers it.
type Consumer struct {
	subscription receiver
	writer       rowWriter
	store        redis.IdempotencyStore
	ttl          time.Duration
	logg         *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	switch {
	case params.Subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case params.Writer == nil:
		return nil, errors.New("analytics writer is required")
	case params.Store == nil:
		return nil, errors.New("idempotency store is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: params.Subscription,
		writer:       params.Writer,
		store:        params.Store,
		ttl:          params.ProcessedTTL,
		logg:         params.Logger,
	}, nil
}

// Run receives messages until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process reports whether the message should be redelivered.
func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) bool {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	envelope, err := ParseMessage(msg)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "invalid analytics envelope")
		return false
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":     envelope.EventID,
		"event_type":   envelope.EventType,
		"aggregate_id": envelope.AggregateID,
	})

	if envelope.EventType != enums.EventPaymentSourceStateChanged {
		c.logg.Info(logCtx, "analytics ignoring event type")
		return false
	}
	event, err := decodeStateChanged(*envelope)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "invalid payment state payload")
		return false
	}

	key := c.store.IdempotencyKey(idempotencyScope, envelope.EventID)
	fresh, err := c.store.SetNX(logCtx, key, "1", c.ttl)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return true
	}
	if !fresh {
		c.logg.Info(logCtx, "event already exported")
		return false
	}

	if err := c.writer.Insert(logCtx, NewPaymentStateRow(*envelope, event)); err != nil {
		c.logg.Error(logCtx, "failed to insert payment state row", err)
		if delErr := c.store.Del(logCtx, key); delErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency key", delErr)
		}
		return true
	}

	c.logg.Info(logCtx, "payment state row exported")
	return false
}
