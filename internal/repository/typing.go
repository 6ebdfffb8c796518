package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"agency_messaging/pkg/logger"
)

// TypingRepository ограничивает typing-события между экземплярами сервиса:
// первый SET NX в окне выигрывает, остальные события отбрасываются.
type TypingRepository interface {
	Acquire(ctx context.Context, clientID, actorID uuid.UUID, window time.Duration) (bool, error)
}

type typingRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewTypingRepository(rdb *redis.Client, log logger.Logger) TypingRepository {
	return &typingRepository{rdb: rdb, log: log}
}

func (r *typingRepository) Acquire(ctx context.Context, clientID, actorID uuid.UUID, window time.Duration) (bool, error) {
	key := fmt.Sprintf("typing:%s:%s", clientID, actorID)
	ok, err := r.rdb.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		r.log.Warn("Failed to acquire typing slot", "error", err)
		return false, fmt.Errorf("typing slot: %w", err)
	}
	return ok, nil
}
