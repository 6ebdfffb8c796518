package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog - запись журнала значимых действий в переписке
type AuditLog struct {
	ID          int64          `json:"id"`
	EventTime   time.Time      `json:"event_time"`
	ActorUserID *uuid.UUID     `json:"actor_user_id,omitempty"`
	ActorRole   string         `json:"actor_role"`
	ClientID    *uuid.UUID     `json:"client_id,omitempty"`
	EventType   string         `json:"event_type"`
	Payload     map[string]any `json:"payload"`
}

const ActorRoleSystem = "system"

const (
	EventTypeOfferSent            = "OFFER_SENT"
	EventTypeOfferAccepted        = "OFFER_ACCEPTED"
	EventTypeOfferRejected        = "OFFER_REJECTED"
	EventTypeOfferWithdrawn       = "OFFER_WITHDRAWN"
	EventTypeMessageStatusChanged = "MESSAGE_STATUS_CHANGED"
)

// OfferEventType - тип записи журнала для нового статуса предложения
func OfferEventType(status string) string {
	switch status {
	case OfferStatusAccepted:
		return EventTypeOfferAccepted
	case OfferStatusRejected:
		return EventTypeOfferRejected
	case OfferStatusWithdrawn:
		return EventTypeOfferWithdrawn
	default:
		return EventTypeOfferSent
	}
}
