package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"agency_messaging/internal/codec"
	"agency_messaging/internal/conversation"
	"agency_messaging/internal/domain"
	"agency_messaging/internal/realtime"
	"agency_messaging/internal/repository"
	apperrors "agency_messaging/pkg/errors"
	"agency_messaging/pkg/logger"
)

const agentLabel = "Agent"

type SendMessageInput struct {
	Text        string
	ReplyToID   *uuid.UUID
	Attachments []codec.Attachment
}

// ThreadMessage - сообщение вместе с разобранным телом
type ThreadMessage struct {
	domain.Message
	View codec.View `json:"view"`
}

type ChatService interface {
	Send(ctx context.Context, actor domain.Actor, clientID uuid.UUID, input SendMessageInput) (*domain.Message, error)
	Thread(ctx context.Context, actor domain.Actor, clientID uuid.UUID) ([]ThreadMessage, error)
	SetStatus(ctx context.Context, actor domain.Actor, clientID, messageID uuid.UUID, status string) (*domain.Message, error)
}

type chatService struct {
	messageRepo repository.MessageRepository
	profileRepo repository.ProfileRepository
	audit       AuditService
	events      publisher
	log         logger.Logger
}

func NewChatService(messageRepo repository.MessageRepository, profileRepo repository.ProfileRepository, audit AuditService, broker realtime.Broker, log logger.Logger) ChatService {
	return &chatService{
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		audit:       audit,
		events:      publisher{broker: broker, log: log},
		log:         log,
	}
}

func (s *chatService) Send(ctx context.Context, actor domain.Actor, clientID uuid.UUID, input SendMessageInput) (*domain.Message, error) {
	if !actor.CanAccessConversation(clientID) {
		return nil, apperrors.ErrForbidden
	}

	for _, a := range input.Attachments {
		if !a.Valid() {
			return nil, fmt.Errorf("%w: invalid attachment %q", apperrors.ErrBadRequest, a.Line())
		}
	}

	body := codec.Compose(input.Text, input.Attachments)
	if body == "" {
		return nil, apperrors.ErrEmptyMessage
	}
	// offer-сообщения создает только OfferService
	if codec.IsOfferBody(body) {
		return nil, fmt.Errorf("%w: text must not be an offer payload", apperrors.ErrBadRequest)
	}

	if input.ReplyToID != nil {
		header, err := s.replyHeader(ctx, clientID, *input.ReplyToID)
		if err != nil {
			return nil, err
		}
		body = codec.EncodeReply(header, body)
	}

	message := &domain.Message{
		ID:         uuid.New(),
		ClientID:   clientID,
		SenderRole: actor.Role,
		Body:       body,
		Status:     domain.StatusForRole(actor.Role),
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	s.syncProfile(ctx, actor)
	s.events.publish(ctx, domain.EventMessageCreated, clientID, message, true)

	return message, nil
}

// replyHeader строит атрибуцию цитируемого сообщения той же переписки
func (s *chatService) replyHeader(ctx context.Context, clientID, quotedID uuid.UUID) (string, error) {
	quoted, err := s.messageRepo.GetByID(ctx, quotedID)
	if err != nil {
		if errors.Is(err, apperrors.ErrMessageNotFound) {
			return "", fmt.Errorf("%w: quoted message not found", apperrors.ErrBadRequest)
		}
		return "", err
	}
	if quoted.ClientID != clientID {
		return "", fmt.Errorf("%w: quoted message belongs to another conversation", apperrors.ErrBadRequest)
	}
	return codec.Attribution(s.authorLabel(ctx, quoted), codec.Excerpt(quoted.Body)), nil
}

func (s *chatService) authorLabel(ctx context.Context, m *domain.Message) string {
	if m.SenderRole == domain.RoleAgent {
		return agentLabel
	}
	profile, err := s.profileRepo.GetByID(ctx, m.ClientID)
	if err != nil || profile.DisplayName == "" {
		return domain.DefaultClientLabel
	}
	return profile.DisplayName
}

// syncProfile запоминает имя клиента из токена для списка входящих
func (s *chatService) syncProfile(ctx context.Context, actor domain.Actor) {
	if actor.IsAgent() || actor.DisplayName == "" {
		return
	}
	profile := &domain.Profile{ID: actor.ID, DisplayName: actor.DisplayName, Role: actor.Role}
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		s.log.Warn("Failed to sync profile", "user_id", actor.ID, "error", err)
	}
}

func (s *chatService) Thread(ctx context.Context, actor domain.Actor, clientID uuid.UUID) ([]ThreadMessage, error) {
	if !actor.CanAccessConversation(clientID) {
		return nil, apperrors.ErrForbidden
	}

	messages, err := s.messageRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	thread := conversation.Thread(messages)
	out := make([]ThreadMessage, 0, len(thread))
	for _, m := range thread {
		out = append(out, ThreadMessage{Message: m, View: codec.ViewOf(codec.Decode(m.Body))})
	}
	return out, nil
}

func (s *chatService) SetStatus(ctx context.Context, actor domain.Actor, clientID, messageID uuid.UUID, status string) (*domain.Message, error) {
	if !actor.IsAgent() {
		return nil, apperrors.ErrForbidden
	}
	if !domain.IsValidMessageStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrBadRequest, status)
	}

	current, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if current.ClientID != clientID {
		return nil, apperrors.ErrMessageNotFound
	}
	if current.Status == status {
		return current, nil
	}
	if !domain.CanChangeMessageStatus(current.Status, status) {
		return nil, fmt.Errorf("%w: status %s cannot change to %s", apperrors.ErrBadRequest, current.Status, status)
	}

	updated, err := s.messageRepo.UpdateStatus(ctx, messageID, status)
	if err != nil {
		return nil, err
	}

	s.events.publish(ctx, domain.EventMessageUpdated, clientID, updated, true)
	record(ctx, s.audit, s.log, actor, clientID, domain.EventTypeMessageStatusChanged, map[string]any{
		"message_id": messageID.String(),
		"from":       current.Status,
		"to":         updated.Status,
	})
	return updated, nil
}
