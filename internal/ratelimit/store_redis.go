package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const bucketKeyPrefix = "td:rl:"

// RedisBucketStore implements BucketStore on Redis with INCR plus a TTL set
// on first increment. The window is fixed rather than sliding, which is the
// usual trade-off for a shared counter; multi-node deployments prefer shared
// state over boundary precision.
type RedisBucketStore struct {
	client *redis.Client
}

// NewRedisBucketStore constructs a Redis-backed bucket store.
func NewRedisBucketStore(client *redis.Client) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

func bucketKey(key string) string {
	return bucketKeyPrefix + key
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	k := bucketKey(key)

	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return nil, fmt.Errorf("increment bucket: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, k, window).Err(); err != nil {
			return nil, fmt.Errorf("set bucket ttl: %w", err)
		}
	}

	ttl, err := s.client.TTL(ctx, k).Result()
	if err != nil {
		return nil, fmt.Errorf("read bucket ttl: %w", err)
	}
	if ttl < 0 {
		// Lost the TTL (e.g. Expire failed on a prior request); re-arm so the
		// bucket cannot count forever.
		ttl = window
		_ = s.client.Expire(ctx, k, window).Err()
	}
	resetAt := time.Now().Add(ttl)

	if count > int64(limit) {
		retryAfter := int(ttl.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return &Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter,
		}, nil
	}

	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count),
		ResetAt:   resetAt,
	}, nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, bucketKey(key)).Err(); err != nil {
		return fmt.Errorf("reset bucket: %w", err)
	}
	return nil
}
