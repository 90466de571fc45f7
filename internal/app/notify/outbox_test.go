package notify

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisOutboxPreservesOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	outbox := NewRedisOutbox(rdb, "potd_notifications")
	intents := LateIntents(testDests)
	if err := outbox.Dispatch(context.Background(), intents...); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	// LPUSH + RPOP is FIFO.
	for i, want := range intents {
		raw, err := rdb.RPop(context.Background(), "potd_notifications").Result()
		if err != nil {
			t.Fatalf("RPop %d: %v", i, err)
		}
		got, err := Decode(raw)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.ID != want.ID || got.Destination != want.Destination || got.Kind != want.Kind {
			t.Errorf("intent %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestRedisOutboxEmptyDispatch(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	if err := NewRedisOutbox(rdb, "q").Dispatch(context.Background()); err != nil {
		t.Fatalf("empty Dispatch: %v", err)
	}
	if mr.Exists("q") {
		t.Error("empty dispatch should not create the list")
	}
}
