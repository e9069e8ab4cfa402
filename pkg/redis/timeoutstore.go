package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/soapboxsocial/fanout/pkg/cache"
)

const timeout = "timeout"

// TimeoutStore keeps expiring windows in redis. A window that is open stays
// so until it elapses or is released.
type TimeoutStore struct {
	rdb *redis.Client
}

func NewTimeoutStore(rdb *redis.Client) *TimeoutStore {
	return &TimeoutStore{rdb: rdb}
}

// Acquire opens the window only when it is not already open, it returns
// false when another caller holds it.
func (t *TimeoutStore) Acquire(ctx context.Context, name string, expiration time.Duration) (bool, error) {
	return t.rdb.SetNX(ctx, cache.Key(cache.Lease, name), timeout, expiration).Result()
}

// Release closes the window early.
func (t *TimeoutStore) Release(ctx context.Context, name string) error {
	return t.rdb.Del(ctx, cache.Key(cache.Lease, name)).Err()
}
