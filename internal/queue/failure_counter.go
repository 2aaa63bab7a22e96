package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sendwell/sendguard/interfaces"
)

const (
	failureKeyPrefix  = "sendguard:probe-failures"
	failureCounterTTL = 24 * time.Hour
)

// redisFailureCounter tracks consecutive connectivity failures per account.
// Keeping it in redis gives every worker the same view of the streak.
type redisFailureCounter struct {
	client *redis.Client
}

func NewFailureCounter(client *redis.Client) interfaces.FailureCounter {
	return &redisFailureCounter{client: client}
}

func failureKey(accountID string) string {
	return fmt.Sprintf("%s:%s", failureKeyPrefix, accountID)
}

func (c *redisFailureCounter) Increment(ctx context.Context, accountID string) (int64, error) {
	key := failureKey(accountID)
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if err := c.client.Expire(ctx, key, failureCounterTTL).Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *redisFailureCounter) Reset(ctx context.Context, accountID string) error {
	return c.client.Del(ctx, failureKey(accountID)).Err()
}

func (c *redisFailureCounter) Get(ctx context.Context, accountID string) (int64, error) {
	count, err := c.client.Get(ctx, failureKey(accountID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}
