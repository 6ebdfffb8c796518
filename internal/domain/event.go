package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event - realtime-событие, публикуемое в топик переписки или во входящие агента
type Event struct {
	Type     string          `json:"type"`
	ClientID uuid.UUID       `json:"client_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	SentAt   time.Time       `json:"sent_at"`
}

const (
	EventMessageCreated = "message.created"
	EventMessageUpdated = "message.updated"
	EventOfferCreated   = "offer.created"
	EventOfferUpdated   = "offer.updated"
	EventTyping         = "typing"
	EventPresenceSync   = "presence.sync"
)

type TypingPayload struct {
	Role string `json:"role"`
}

// PresenceEntry - запись присутствия одного открытого окна переписки
type PresenceEntry struct {
	Key      string    `json:"key"`
	Role     string    `json:"role"`
	LastSeen time.Time `json:"last_seen"`
}

type PresenceSyncPayload struct {
	Entries []PresenceEntry `json:"entries"`
}

func NewEvent(eventType string, clientID uuid.UUID, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:     eventType,
		ClientID: clientID,
		Payload:  data,
		SentAt:   time.Now().UTC(),
	}, nil
}

// DecodePayload распаковывает payload события в v
func (e Event) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}
