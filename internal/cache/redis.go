package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisEvictor deletes keys matching a glob using SCAN, so eviction never
// blocks Redis the way KEYS would on a large keyspace.
type RedisEvictor struct {
	rdb   *redis.Client
	count int64
}

// NewRedisEvictor returns an evictor that scans count keys per round trip.
// A nil client yields an evictor that removes nothing.
func NewRedisEvictor(rdb *redis.Client, count int64) *RedisEvictor {
	if count <= 0 {
		count = 100
	}
	return &RedisEvictor{rdb: rdb, count: count}
}

// Evict implements Evictor.
func (e *RedisEvictor) Evict(ctx context.Context, pattern string) (int64, error) {
	if e.rdb == nil {
		return 0, nil
	}
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := e.rdb.Scan(ctx, cursor, pattern, e.count).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := e.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
