package service

import (
	"agency_messaging/internal/config"
	"agency_messaging/internal/realtime"
	"agency_messaging/internal/repository"
	"agency_messaging/internal/storage"
	"agency_messaging/pkg/logger"
)

type Services struct {
	Chat       ChatService
	Inbox      InboxService
	Offer      OfferService
	Attachment AttachmentService
	Presence   PresenceService
	Preference PreferenceService
	RateLimit  RateLimitService
	Audit      AuditService
}

func NewServices(repos *repository.Repositories, broker realtime.Broker, store storage.Storage, cfg *config.Config, log logger.Logger) *Services {
	audit := NewAuditService(repos.Audit, log)
	return &Services{
		Chat:       NewChatService(repos.Message, repos.Profile, audit, broker, log),
		Inbox:      NewInboxService(repos.Message, repos.Profile, broker, log),
		Offer:      NewOfferService(repos.Offer, audit, broker, cfg.Checkout.BaseURL, log),
		Attachment: NewAttachmentService(store, cfg.Attachment.MaxBytes, cfg.Attachment.Concurrency, log),
		Presence:   NewPresenceService(repos.Presence, repos.Typing, broker, cfg.Presence.TTL, cfg.Realtime.TypingInterval, log),
		Preference: NewPreferenceService(repos.Preference, log),
		RateLimit:  NewRateLimitService(repos.RateLimit, cfg.RateLimit.Requests, cfg.RateLimit.Window, log),
		Audit:      audit,
	}
}
