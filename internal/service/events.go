package service

import (
	"context"

	"github.com/google/uuid"

	"agency_messaging/internal/domain"
	"agency_messaging/internal/realtime"
	"agency_messaging/pkg/logger"
)

// publisher рассылает события переписки. Ошибки доставки не прерывают запись:
// данные уже сохранены, клиенты догонят состояние при следующей загрузке.
type publisher struct {
	broker realtime.Broker
	log    logger.Logger
}

func (p publisher) publish(ctx context.Context, eventType string, clientID uuid.UUID, payload any, toInbox bool) {
	event, err := domain.NewEvent(eventType, clientID, payload)
	if err != nil {
		p.log.Warn("Failed to build event", "type", eventType, "error", err)
		return
	}
	if err := p.broker.Publish(ctx, realtime.ConversationTopic(clientID), event); err != nil {
		p.log.Warn("Failed to publish event", "type", eventType, "client_id", clientID, "error", err)
	}
	if !toInbox {
		return
	}
	if err := p.broker.Publish(ctx, realtime.InboxTopic, event); err != nil {
		p.log.Warn("Failed to publish inbox event", "type", eventType, "client_id", clientID, "error", err)
	}
}
