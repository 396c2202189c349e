package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/marketplace-payments/pkg/redis"
)

// IdempotencyGuard marks delivery ids as seen with Redis SETNX.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true when the delivery was already seen.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, scope, deliveryID string) (bool, error) {
	key, err := g.key(scope, deliveryID)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release forgets the delivery so a redelivery is processed again.
func (g *IdempotencyGuard) Release(ctx context.Context, scope, deliveryID string) error {
	key, err := g.key(scope, deliveryID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *IdempotencyGuard) key(scope, deliveryID string) (string, error) {
	if scope == "" {
		return "", errors.New("scope is required")
	}
	if deliveryID == "" {
		return "", errors.New("delivery id is required")
	}
	return g.store.IdempotencyKey("webhook:"+scope, deliveryID), nil
}
