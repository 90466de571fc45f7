package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisLockerExclusive(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	a := NewRedisLocker(rdb, "advance", time.Minute)
	b := NewRedisLocker(rdb, "advance", time.Minute)

	tokenA, ok, err := a.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v", ok, err)
	}
	if _, ok, err := b.Acquire(ctx); err != nil || ok {
		t.Fatalf("second Acquire should fail while held, got %v, %v", ok, err)
	}

	if released, err := b.Release(ctx, "not-the-token"); err != nil || released {
		t.Fatalf("release with wrong token = %v, %v", released, err)
	}
	if released, err := a.Release(ctx, tokenA); err != nil || !released {
		t.Fatalf("release with owner token = %v, %v", released, err)
	}
	if _, ok, err := b.Acquire(ctx); err != nil || !ok {
		t.Fatalf("Acquire after release = %v, %v", ok, err)
	}
}

func TestRedisLockerExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	l := NewRedisLocker(rdb, "advance", 10*time.Second)

	token, ok, _ := l.Acquire(ctx)
	if !ok {
		t.Fatal("Acquire failed")
	}
	mr.FastForward(11 * time.Second)

	if released, err := l.Release(ctx, token); err != nil || released {
		t.Errorf("release after expiry = %v, %v; want false, nil", released, err)
	}
	if _, ok, _ := l.Acquire(ctx); !ok {
		t.Error("lock should be free after expiry")
	}
}
