package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agency_messaging/internal/domain"
	"agency_messaging/internal/repository"
	apperrors "agency_messaging/pkg/errors"
	"agency_messaging/pkg/logger"
)

const maxAuditEntries = 200

type AuditService interface {
	LogEvent(ctx context.Context, actor domain.Actor, clientID uuid.UUID, eventType string, payload map[string]any) error
	// History - журнал переписки для агента
	History(ctx context.Context, actor domain.Actor, clientID uuid.UUID, limit int) ([]domain.AuditLog, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	now       func() time.Time
	log       logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, log logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		now:       time.Now,
		log:       log,
	}
}

func (s *auditService) LogEvent(ctx context.Context, actor domain.Actor, clientID uuid.UUID, eventType string, payload map[string]any) error {
	if payload == nil {
		payload = make(map[string]any)
	}

	auditLog := &domain.AuditLog{
		EventTime: s.now().UTC(),
		ActorRole: actor.Role,
		ClientID:  &clientID,
		EventType: eventType,
		Payload:   payload,
	}
	if actor.ID != uuid.Nil {
		id := actor.ID
		auditLog.ActorUserID = &id
	} else {
		auditLog.ActorRole = domain.ActorRoleSystem
	}

	return s.auditRepo.CreateLog(ctx, auditLog)
}

func (s *auditService) History(ctx context.Context, actor domain.Actor, clientID uuid.UUID, limit int) ([]domain.AuditLog, error) {
	if !actor.IsAgent() {
		return nil, apperrors.ErrForbidden
	}
	if limit <= 0 || limit > maxAuditEntries {
		limit = maxAuditEntries
	}
	return s.auditRepo.ListByClient(ctx, clientID, limit)
}

// record пишет событие в журнал; журнал вспомогательный, сбой только логируется
func record(ctx context.Context, audit AuditService, log logger.Logger, actor domain.Actor, clientID uuid.UUID, eventType string, payload map[string]any) {
	if audit == nil {
		return
	}
	if err := audit.LogEvent(ctx, actor, clientID, eventType, payload); err != nil {
		log.Warn("Failed to write audit log", "event_type", eventType, "client_id", clientID, "error", err)
	}
}
