package worker

import (
	"context"
	"errors"
	"time"

	"potd_engine/internal/app/notify"
	"potd_engine/internal/platform/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NotificationWorker pops queued intents and delivers them one at a time.
type NotificationWorker struct {
	rdb         *redis.Client
	queueName   string
	deliverer   *notify.Deliverer
	pollTimeout time.Duration
}

func NewNotificationWorker(rdb *redis.Client, queueName string, deliverer *notify.Deliverer) *NotificationWorker {
	return &NotificationWorker{
		rdb:         rdb,
		queueName:   queueName,
		deliverer:   deliverer,
		pollTimeout: 5 * time.Second,
	}
}

// Start blocks until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	logger.Log.Info("Notification worker started", zap.String("queue", w.queueName))
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Notification worker stopping")
			return
		default:
		}

		// A finite timeout lets the loop notice shutdown.
		res, err := w.rdb.BRPop(ctx, w.pollTimeout, w.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			logger.Log.Error("Failed to BRPop from notification queue", zap.String("queue", w.queueName), zap.Error(err))
			sleepCtx(ctx, 5*time.Second)
			continue
		}

		// res is [queueName, value]
		if len(res) < 2 || res[1] == "" {
			logger.Log.Warn("BRPop returned an empty intent")
			continue
		}
		w.handle(ctx, res[1])
	}
}

func (w *NotificationWorker) handle(ctx context.Context, raw string) {
	in, err := notify.Decode(raw)
	if err != nil {
		logger.Log.Error("Dropping undecodable intent", zap.Error(err))
		return
	}
	if w.deliverer.Deliver(ctx, in) {
		logger.Log.Debug("Intent delivered", zap.String("intent_id", in.ID), zap.String("kind", string(in.Kind)))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
