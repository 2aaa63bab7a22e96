package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const limiterKeyPrefix = "sendguard:ratelimit:jobs"

// RateLimiter is a fixed-window counter shared across workers through redis.
// All workers of all replicas draw from the same window, so the cap holds
// fleet-wide.
type RateLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		max:    max,
		window: window,
	}
}

// Allow consumes one slot from the current window. When the window is
// exhausted it returns false and the time the next window opens.
func (l *RateLimiter) Allow(ctx context.Context) (bool, time.Time, error) {
	windowStart := time.Now().UTC().Truncate(l.window)
	key := fmt.Sprintf("%s:%d", limiterKeyPrefix, windowStart.Unix())

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, time.Time{}, err
	}
	if count == 1 {
		// first hit in the window owns setting the expiry
		if err := l.client.Expire(ctx, key, l.window+time.Second).Err(); err != nil {
			return false, time.Time{}, err
		}
	}

	if count > int64(l.max) {
		return false, windowStart.Add(l.window), nil
	}
	return true, time.Time{}, nil
}
