package notify

import (
	"context"
	"sync"

	"potd_engine/internal/domain/model"
	"potd_engine/internal/platform/logger"
	"potd_engine/internal/platform/monitoring"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Deliverer sends intents through a Sender, throttled per destination.
// Failures are logged and counted, never returned to the state engine.
type Deliverer struct {
	sender   Sender
	dests    map[string]model.Destination
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewDeliverer(sender Sender, dests []model.Destination, perSecond float64, burst int) *Deliverer {
	byName := make(map[string]model.Destination, len(dests))
	for _, d := range dests {
		byName[d.Name] = d
	}
	if burst < 1 {
		burst = 1
	}
	return &Deliverer{
		sender:   sender,
		dests:    byName,
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (d *Deliverer) limiter(name string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[name]
	if !ok {
		l = rate.NewLimiter(d.limit, d.burst)
		d.limiters[name] = l
	}
	return l
}

// Deliver reports whether the intent was sent.
func (d *Deliverer) Deliver(ctx context.Context, in Intent) bool {
	dest, ok := d.dests[in.Destination]
	if !ok {
		logger.Log.Warn("dropping intent for unknown destination",
			zap.String("intent_id", in.ID), zap.String("destination", in.Destination))
		monitoring.NotificationsTotal.WithLabelValues(string(in.Kind), "dropped").Inc()
		return false
	}
	if dest.WebhookURL == "" {
		logger.Log.Debug("destination has no webhook, skipping", zap.String("destination", dest.Name))
		monitoring.NotificationsTotal.WithLabelValues(string(in.Kind), "skipped").Inc()
		return false
	}

	if err := d.limiter(dest.Name).Wait(ctx); err != nil {
		logger.Log.Warn("notification throttle wait aborted", zap.String("intent_id", in.ID), zap.Error(err))
		monitoring.NotificationsTotal.WithLabelValues(string(in.Kind), "aborted").Inc()
		return false
	}

	if err := d.sender.Send(ctx, dest, Render(dest, in)); err != nil {
		logger.Log.Error("notification delivery failed",
			zap.String("intent_id", in.ID), zap.String("kind", string(in.Kind)),
			zap.String("destination", dest.Name), zap.Error(err))
		monitoring.NotificationsTotal.WithLabelValues(string(in.Kind), "failed").Inc()
		return false
	}
	monitoring.NotificationsTotal.WithLabelValues(string(in.Kind), "sent").Inc()
	return true
}

// DirectDispatcher delivers in a background goroutine of this process. It is used when Redis is disabled.
type DirectDispatcher struct {
	deliverer *Deliverer
	wg        sync.WaitGroup
}

func NewDirectDispatcher(deliverer *Deliverer) *DirectDispatcher {
	return &DirectDispatcher{deliverer: deliverer}
}

func (d *DirectDispatcher) Dispatch(_ context.Context, intents ...Intent) error {
	if len(intents) == 0 {
		return nil
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// The request context may already be gone by the time we deliver.
		ctx := context.Background()
		for _, in := range intents {
			d.deliverer.Deliver(ctx, in)
		}
	}()
	return nil
}

// Wait blocks until every dispatched batch has been attempted.
func (d *DirectDispatcher) Wait() {
	d.wg.Wait()
}
