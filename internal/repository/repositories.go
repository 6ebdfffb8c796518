package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"agency_messaging/pkg/logger"
)

type Repositories struct {
	Message    MessageRepository
	Offer      OfferRepository
	Profile    ProfileRepository
	Presence   PresenceRepository
	Preference PreferenceRepository
	Typing     TypingRepository
	RateLimit  RateLimitRepository
	Audit      AuditRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, presenceTTL time.Duration, log logger.Logger) *Repositories {
	repos := &Repositories{
		Message:    NewMessageRepository(db, log),
		Offer:      NewOfferRepository(db, log),
		Profile:    NewProfileRepository(db, log),
		Presence:   NewPresenceRepository(redis, presenceTTL, log),
		Preference: NewPreferenceRepository(redis, log),
		Typing:     NewTypingRepository(redis, log),
		RateLimit:  NewRateLimitRepository(redis, log),
		Audit:      NewAuditRepository(db, log),
	}

	log.Info("Repositories initialized")
	return repos
}
