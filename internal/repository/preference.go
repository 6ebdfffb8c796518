package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"agency_messaging/pkg/logger"
)

// PreferenceRepository - настройки пользователя (например, тема оформления) в хеше prefs:<actorID>
type PreferenceRepository interface {
	Get(ctx context.Context, actorID uuid.UUID, key string) (string, bool, error)
	Set(ctx context.Context, actorID uuid.UUID, key, value string) error
	All(ctx context.Context, actorID uuid.UUID) (map[string]string, error)
}

type preferenceRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewPreferenceRepository(rdb *redis.Client, log logger.Logger) PreferenceRepository {
	return &preferenceRepository{rdb: rdb, log: log}
}

func preferencesKey(actorID uuid.UUID) string {
	return "prefs:" + actorID.String()
}

func (r *preferenceRepository) Get(ctx context.Context, actorID uuid.UUID, key string) (string, bool, error) {
	value, err := r.rdb.HGet(ctx, preferencesKey(actorID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		r.log.Error("Failed to get preference", "key", key, "error", err)
		return "", false, fmt.Errorf("get preference: %w", err)
	}
	return value, true, nil
}

func (r *preferenceRepository) Set(ctx context.Context, actorID uuid.UUID, key, value string) error {
	if err := r.rdb.HSet(ctx, preferencesKey(actorID), key, value).Err(); err != nil {
		r.log.Error("Failed to set preference", "key", key, "error", err)
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

func (r *preferenceRepository) All(ctx context.Context, actorID uuid.UUID) (map[string]string, error) {
	values, err := r.rdb.HGetAll(ctx, preferencesKey(actorID)).Result()
	if err != nil {
		r.log.Error("Failed to list preferences", "error", err)
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return values, nil
}
