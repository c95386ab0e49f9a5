package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agrione/offline-sync/pkg/queue"
	"github.com/redis/go-redis/v9"
)

// Entry is a dropped action as pushed to the Redis list
type Entry struct {
	Action    queue.QueuedAction `json:"action"`
	Reason    string             `json:"reason"`
	DroppedAt time.Time          `json:"droppedAt"`
}

// RedisRecorder pushes dropped actions to the "<slot>:dropped" list
type RedisRecorder struct {
	client *redis.Client
	list   string
	now    func() time.Time
}

func NewRedisRecorder(client *redis.Client, slotKey string) *RedisRecorder {
	return &RedisRecorder{client: client, list: slotKey + ":dropped", now: time.Now}
}

func (r *RedisRecorder) Record(ctx context.Context, action queue.QueuedAction, reason string) error {
	body, err := json.Marshal(Entry{Action: action, Reason: reason, DroppedAt: r.now().UTC()})
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, r.list, body).Err()
}

// List returns the recorded entries, oldest first
func (r *RedisRecorder) List(ctx context.Context) ([]Entry, error) {
	raw, err := r.client.LRange(ctx, r.list, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
