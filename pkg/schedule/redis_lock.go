package schedule

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisLockPrefix = "sync_lock:"

// RedisLockProvider implements LockProvider using Redis SETNX
type RedisLockProvider struct {
	client *redis.Client
}

func NewRedisLockProvider(client *redis.Client) *RedisLockProvider {
	return &RedisLockProvider{client: client}
}

func (r *RedisLockProvider) GetLock(ctx context.Context, name string, duration time.Duration) (bool, error) {
	// SET name value NX PX duration
	return r.client.SetNX(ctx, redisLockPrefix+name, "locked", duration).Result()
}

func (r *RedisLockProvider) ReleaseLock(ctx context.Context, name string) error {
	return r.client.Del(ctx, redisLockPrefix+name).Err()
}
