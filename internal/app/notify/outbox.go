package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisOutbox queues intents on a Redis list; the notification worker pops them.
type RedisOutbox struct {
	rdb *redis.Client
	key string
}

func NewRedisOutbox(rdb *redis.Client, key string) *RedisOutbox {
	return &RedisOutbox{rdb: rdb, key: key}
}

func (o *RedisOutbox) Dispatch(ctx context.Context, intents ...Intent) error {
	if len(intents) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(intents))
	for _, in := range intents {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal intent %s: %w", in.ID, err)
		}
		values = append(values, data)
	}
	if err := o.rdb.LPush(ctx, o.key, values...).Err(); err != nil {
		return fmt.Errorf("failed to push intents to %s: %w", o.key, err)
	}
	return nil
}

func (o *RedisOutbox) Key() string {
	return o.key
}

// Decode parses one queued intent.
func Decode(raw string) (Intent, error) {
	var in Intent
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return Intent{}, fmt.Errorf("failed to decode intent: %w", err)
	}
	return in, nil
}
