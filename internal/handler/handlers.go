package handler

import (
	"agency_messaging/internal/config"
	"agency_messaging/internal/realtime"
	"agency_messaging/internal/service"
	"agency_messaging/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	Conversation *ConversationHandler
	Offer        *OfferHandler
	Preference   *PreferenceHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(services *service.Services, hub *realtime.Hub, checks map[string]CheckFunc, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(checks),
		Conversation: NewConversationHandler(services, log),
		Offer:        NewOfferHandler(services.Offer, log),
		Preference:   NewPreferenceHandler(services.Preference, log),
		WebSocket:    NewWebSocketHandler(hub, services.Presence, cfg.Server.AllowedOrigins, log),
	}
}
