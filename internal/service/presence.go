package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agency_messaging/internal/domain"
	"agency_messaging/internal/realtime"
	"agency_messaging/internal/repository"
	apperrors "agency_messaging/pkg/errors"
	"agency_messaging/pkg/logger"
)

// PresenceService - присутствие и typing-индикация. Сбои здесь только логируются:
// присутствие носит информационный характер и не должно ломать переписку.
type PresenceService interface {
	// Join регистрирует окно переписки под новым эфемерным ключом
	Join(ctx context.Context, clientID uuid.UUID, role string) string
	Heartbeat(ctx context.Context, clientID uuid.UUID, key, role string)
	Leave(ctx context.Context, clientID uuid.UUID, key string)
	State(ctx context.Context, actor domain.Actor, clientID uuid.UUID) ([]domain.PresenceEntry, error)
	// Typing рассылает typing-событие не чаще одного раза за интервал на участника
	Typing(ctx context.Context, actor domain.Actor, clientID uuid.UUID) bool
	// Sweep удаляет записи, не обновлявшиеся дольше TTL; возвращает число удаленных
	Sweep(ctx context.Context) (int, error)
}

type presenceService struct {
	presenceRepo   repository.PresenceRepository
	typingRepo     repository.TypingRepository
	throttle       *realtime.Throttle
	typingInterval time.Duration
	ttl            time.Duration
	now            func() time.Time
	events         publisher
	log            logger.Logger
}

func NewPresenceService(presenceRepo repository.PresenceRepository, typingRepo repository.TypingRepository, broker realtime.Broker, ttl, typingInterval time.Duration, log logger.Logger) PresenceService {
	return &presenceService{
		presenceRepo:   presenceRepo,
		typingRepo:     typingRepo,
		throttle:       realtime.NewThrottle(typingInterval, time.Now),
		typingInterval: typingInterval,
		ttl:            ttl,
		now:            time.Now,
		events:         publisher{broker: broker, log: log},
		log:            log,
	}
}

func (s *presenceService) Join(ctx context.Context, clientID uuid.UUID, role string) string {
	key := uuid.NewString()
	s.track(ctx, clientID, key, role)
	return key
}

func (s *presenceService) Heartbeat(ctx context.Context, clientID uuid.UUID, key, role string) {
	s.track(ctx, clientID, key, role)
}

func (s *presenceService) track(ctx context.Context, clientID uuid.UUID, key, role string) {
	entry := domain.PresenceEntry{Key: key, Role: role, LastSeen: s.now().UTC()}
	if err := s.presenceRepo.Upsert(ctx, clientID, entry); err != nil {
		s.log.Warn("Failed to track presence", "client_id", clientID, "error", err)
		return
	}
	s.broadcast(ctx, clientID)
}

func (s *presenceService) Leave(ctx context.Context, clientID uuid.UUID, key string) {
	if err := s.presenceRepo.Remove(ctx, clientID, key); err != nil {
		s.log.Warn("Failed to leave presence", "client_id", clientID, "error", err)
		return
	}
	s.broadcast(ctx, clientID)
}

// broadcast рассылает полное состояние присутствия переписки
func (s *presenceService) broadcast(ctx context.Context, clientID uuid.UUID) {
	entries, err := s.fresh(ctx, clientID)
	if err != nil {
		s.log.Warn("Failed to read presence", "client_id", clientID, "error", err)
		return
	}
	s.events.publish(ctx, domain.EventPresenceSync, clientID, domain.PresenceSyncPayload{Entries: entries}, false)
}

func (s *presenceService) fresh(ctx context.Context, clientID uuid.UUID) ([]domain.PresenceEntry, error) {
	entries, err := s.presenceRepo.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	entries = realtime.Fresh(entries, s.now(), s.ttl)
	realtime.SortEntries(entries)
	return entries, nil
}

func (s *presenceService) State(ctx context.Context, actor domain.Actor, clientID uuid.UUID) ([]domain.PresenceEntry, error) {
	if !actor.CanAccessConversation(clientID) {
		return nil, apperrors.ErrForbidden
	}
	return s.fresh(ctx, clientID)
}

func (s *presenceService) Typing(ctx context.Context, actor domain.Actor, clientID uuid.UUID) bool {
	if !s.throttle.Allow(clientID.String() + ":" + actor.ID.String()) {
		return false
	}
	// второй рубеж - общий для всех экземпляров
	ok, err := s.typingRepo.Acquire(ctx, clientID, actor.ID, s.typingInterval)
	if err != nil {
		s.log.Warn("Typing throttle unavailable", "client_id", clientID, "error", err)
		return false
	}
	if !ok {
		return false
	}
	s.events.publish(ctx, domain.EventTyping, clientID, domain.TypingPayload{Role: actor.Role}, false)
	return true
}

func (s *presenceService) Sweep(ctx context.Context) (int, error) {
	conversations, err := s.presenceRepo.Conversations(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	now := s.now()
	for _, clientID := range conversations {
		entries, err := s.presenceRepo.List(ctx, clientID)
		if err != nil {
			s.log.Warn("Failed to read presence for sweep", "client_id", clientID, "error", err)
			continue
		}
		stale := realtime.Stale(entries, now, s.ttl)
		if len(stale) == 0 {
			continue
		}
		if err := s.presenceRepo.Remove(ctx, clientID, stale...); err != nil {
			s.log.Warn("Failed to sweep presence", "client_id", clientID, "error", err)
			continue
		}
		removed += len(stale)
		s.broadcast(ctx, clientID)
	}
	return removed, nil
}
