package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"agency_messaging/pkg/logger"
)

// RateLimitRepository - счетчик запросов в фиксированном окне
type RateLimitRepository interface {
	// Allow увеличивает счетчик ключа и сообщает, не превышен ли лимит
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		r.log.Error("Failed to increment rate limit", "error", err)
		return false, fmt.Errorf("rate limit: %w", err)
	}

	// окно отсчитывается от первого запроса
	if count == 1 {
		if err := r.redis.Expire(ctx, key, window).Err(); err != nil {
			r.log.Error("Failed to set rate limit window", "error", err)
			return false, fmt.Errorf("rate limit window: %w", err)
		}
	}
	return count <= int64(limit), nil
}
