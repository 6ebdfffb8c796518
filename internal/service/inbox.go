package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"agency_messaging/internal/conversation"
	"agency_messaging/internal/domain"
	"agency_messaging/internal/realtime"
	"agency_messaging/internal/repository"
	apperrors "agency_messaging/pkg/errors"
	"agency_messaging/pkg/logger"
)

// InboxService держит индекс переписок для входящих агента. Индекс прогревается
// из журнала сообщений и дальше живет на событиях топика inbox.
type InboxService interface {
	Start(ctx context.Context) error
	List(ctx context.Context, actor domain.Actor, query string) ([]domain.ConversationSummary, error)
}

type inboxService struct {
	messageRepo repository.MessageRepository
	profileRepo repository.ProfileRepository
	broker      realtime.Broker
	index       *conversation.Index
	log         logger.Logger
}

func NewInboxService(messageRepo repository.MessageRepository, profileRepo repository.ProfileRepository, broker realtime.Broker, log logger.Logger) InboxService {
	return &inboxService{
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		broker:      broker,
		index:       conversation.NewIndex(),
		log:         log,
	}
}

func (s *inboxService) Start(ctx context.Context) error {
	// подписываемся до прогрева: событие между чтением журнала и подпиской не потеряется,
	// а повторное применение безопасно
	sub, err := s.broker.Subscribe(ctx, realtime.InboxTopic)
	if err != nil {
		return fmt.Errorf("subscribe inbox: %w", err)
	}

	messages, err := s.messageRepo.ListAll(ctx)
	if err != nil {
		sub.Close()
		return fmt.Errorf("warm inbox: %w", err)
	}
	s.index.Reset(messages)
	s.log.Info("Inbox index warmed", "messages", len(messages), "conversations", s.index.Len())

	go s.consume(sub)
	return nil
}

func (s *inboxService) consume(sub realtime.Subscription) {
	defer sub.Close()
	for event := range sub.Events() {
		switch event.Type {
		case domain.EventMessageCreated, domain.EventMessageUpdated:
			var m domain.Message
			if err := event.DecodePayload(&m); err != nil {
				s.log.Warn("Failed to decode inbox event", "type", event.Type, "error", err)
				continue
			}
			s.index.Apply(m)
		}
	}
}

func (s *inboxService) List(ctx context.Context, actor domain.Actor, query string) ([]domain.ConversationSummary, error) {
	if !actor.IsAgent() {
		return nil, apperrors.ErrForbidden
	}

	summaries := s.index.Summaries()

	ids := make([]uuid.UUID, 0, len(summaries))
	for _, summary := range summaries {
		ids = append(ids, summary.ClientID)
	}
	names, err := s.profileRepo.DisplayNames(ctx, ids)
	if err != nil {
		// имена не критичны, показываем общую подпись
		s.log.Warn("Failed to load display names", "error", err)
		names = nil
	}

	for i := range summaries {
		summaries[i].DisplayName = domain.DefaultClientLabel
		if name, ok := names[summaries[i].ClientID]; ok {
			summaries[i].DisplayName = name
		}
	}

	return conversation.Filter(summaries, query), nil
}
