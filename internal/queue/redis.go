package queue

import (
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	internal_config "github.com/sendwell/sendguard/internal/config"
)

func NewRedisClient(cfg *internal_config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	return redis.NewClient(opts), nil
}
