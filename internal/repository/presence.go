package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"agency_messaging/internal/domain"
	"agency_messaging/pkg/logger"
)

const presenceKeyPrefix = "presence:"

// PresenceRepository хранит присутствие по переписке в хеше presence:<clientID>,
// поле хеша - эфемерный ключ соединения, значение - JSON записи.
type PresenceRepository interface {
	Upsert(ctx context.Context, clientID uuid.UUID, entry domain.PresenceEntry) error
	Remove(ctx context.Context, clientID uuid.UUID, keys ...string) error
	List(ctx context.Context, clientID uuid.UUID) ([]domain.PresenceEntry, error)
	// Conversations - переписки, для которых есть хоть одна запись
	Conversations(ctx context.Context) ([]uuid.UUID, error)
}

type presenceRepository struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

func NewPresenceRepository(rdb *redis.Client, ttl time.Duration, log logger.Logger) PresenceRepository {
	return &presenceRepository{rdb: rdb, ttl: ttl, log: log}
}

func presenceKey(clientID uuid.UUID) string {
	return presenceKeyPrefix + clientID.String()
}

func (r *presenceRepository) Upsert(ctx context.Context, clientID uuid.UUID, entry domain.PresenceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}

	key := presenceKey(clientID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, entry.Key, data)
		// ключ целиком живет, пока кто-то шлет heartbeat
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to upsert presence", "error", err)
		return fmt.Errorf("upsert presence: %w", err)
	}
	return nil
}

func (r *presenceRepository) Remove(ctx context.Context, clientID uuid.UUID, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.HDel(ctx, presenceKey(clientID), keys...).Err(); err != nil {
		r.log.Error("Failed to remove presence", "error", err)
		return fmt.Errorf("remove presence: %w", err)
	}
	return nil
}

func (r *presenceRepository) List(ctx context.Context, clientID uuid.UUID) ([]domain.PresenceEntry, error) {
	values, err := r.rdb.HGetAll(ctx, presenceKey(clientID)).Result()
	if err != nil {
		r.log.Error("Failed to list presence", "error", err)
		return nil, fmt.Errorf("list presence: %w", err)
	}

	entries := make([]domain.PresenceEntry, 0, len(values))
	for field, raw := range values {
		var entry domain.PresenceEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			r.log.Warn("Skipping malformed presence entry", "field", field, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *presenceRepository) Conversations(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	iter := r.rdb.Scan(ctx, 0, presenceKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id, err := uuid.Parse(strings.TrimPrefix(iter.Val(), presenceKeyPrefix))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		r.log.Error("Failed to scan presence keys", "error", err)
		return nil, fmt.Errorf("scan presence: %w", err)
	}
	return ids, nil
}
