package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/marketplace-payments/pkg/redis"
)

func newLockStore(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisLockExcludesSecondOwner(t *testing.T) {
	store, _ := newLockStore(t)
	ctx := context.Background()
	key := store.LockKey("cron")

	first, err := NewRedisLock(store, key, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, _ := NewRedisLock(store, key, time.Minute)

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, err := second.Acquire(ctx); err != nil || ok {
		t.Fatalf("second acquire should fail: ok=%v err=%v", ok, err)
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("non-owner release must not free the lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, err := second.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestRedisLockExpires(t *testing.T) {
	store, mr := newLockStore(t)
	ctx := context.Background()
	key := store.LockKey("cron")

	first, _ := NewRedisLock(store, key, time.Minute)
	second, _ := NewRedisLock(store, key, time.Minute)
	if ok, _ := first.Acquire(ctx); !ok {
		t.Fatal("expected first acquire")
	}
	mr.FastForward(2 * time.Minute)
	if ok, err := second.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected lock to expire: ok=%v err=%v", ok, err)
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("stale owner release: %v", err)
	}
	if ok, _ := first.Acquire(ctx); ok {
		t.Fatal("stale owner must not have freed the new lock")
	}
}

func TestRedisLockExtend(t *testing.T) {
	store, mr := newLockStore(t)
	ctx := context.Background()
	key := store.LockKey("cron")

	lock, _ := NewRedisLock(store, key, time.Minute)
	if err := lock.Extend(ctx); !errors.Is(err, ErrLockLost) {
		t.Fatalf("extend before acquire should report lost lock, got %v", err)
	}
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}

	mr.FastForward(50 * time.Second)
	if err := lock.Extend(ctx); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("expected ttl reset to 1m, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	other, _ := NewRedisLock(store, key, time.Minute)
	if ok, _ := other.Acquire(ctx); !ok {
		t.Fatal("expected other owner to take the expired lock")
	}
	if err := lock.Extend(ctx); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost after takeover, got %v", err)
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", time.Minute); err == nil {
		t.Fatal("expected error for nil client")
	}
	store, _ := newLockStore(t)
	if _, err := NewRedisLock(store, "", time.Minute); err == nil {
		t.Fatal("expected error for empty key")
	}
}
