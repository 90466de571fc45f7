package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"potd_engine/internal/app/notify"
	"potd_engine/internal/app/service"
	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNextRun(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{"later today", time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC), time.UTC, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
		{"exactly now rolls over", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), time.UTC, time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)},
		{"month end", time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC), time.UTC, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
		{"other zone", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), ny, time.Date(2024, 3, 1, 9, 30, 0, 0, ny)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.now, tt.loc, 9, 30)
			if !got.Equal(tt.want) {
				t.Errorf("NextRun = %v, want %v", got, tt.want)
			}
		})
	}
}

type countingAdvancer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *countingAdvancer) Advance(context.Context) (*service.AdvanceResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &service.AdvanceResult{Outcome: service.AdvanceNoSeason}, nil
}

func TestSchedulerRunOnceSwallowsErrors(t *testing.T) {
	a := &countingAdvancer{err: common.ErrAdvanceInProgress}
	s := NewScheduler(a, nil, 0, 0)
	s.RunOnce(context.Background())
	a.err = nil
	s.RunOnce(context.Background())
	if a.calls != 2 {
		t.Errorf("calls = %d, want 2", a.calls)
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	s := NewScheduler(&countingAdvancer{}, time.UTC, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

type chanSender struct{ got chan notify.Message }

func (s *chanSender) Send(_ context.Context, _ model.Destination, msg notify.Message) error {
	s.got <- msg
	return nil
}

func TestNotificationWorkerDeliversQueuedIntents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	dests := []model.Destination{{Name: "main", WebhookURL: "http://example.invalid/hook", ChannelID: "c1"}}
	sender := &chanSender{got: make(chan notify.Message, 4)}
	deliverer := notify.NewDeliverer(sender, dests, 100, 10)

	// The garbage entry is popped first and must not stop the worker.
	if err := rdb.LPush(context.Background(), "potd_notifications", "not json").Err(); err != nil {
		t.Fatal(err)
	}
	outbox := notify.NewRedisOutbox(rdb, "potd_notifications")
	if err := outbox.Dispatch(context.Background(), notify.LateIntents(dests)...); err != nil {
		t.Fatal(err)
	}

	w := NewNotificationWorker(rdb, "potd_notifications", deliverer)
	w.pollTimeout = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-sender.got:
	case <-time.After(5 * time.Second):
		t.Fatal("intent was not delivered")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	if n, _ := rdb.LLen(context.Background(), "potd_notifications").Result(); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
}
