package service

import (
	"context"
	"time"

	"agency_messaging/internal/repository"
	"agency_messaging/pkg/logger"
)

type RateLimitService interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	limit         int
	window        time.Duration
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, limit int, window time.Duration, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		limit:         limit,
		window:        window,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, key string) (bool, error) {
	return s.rateLimitRepo.Allow(ctx, "ratelimit:"+key, s.limit, s.window)
}
