package domain

import (
	"github.com/google/uuid"
)

// DefaultClientLabel - имя клиента, если профиль не найден
const DefaultClientLabel = "Client"

// ConversationSummary - производная сводка по переписке одного клиента (не хранится в БД)
type ConversationSummary struct {
	ClientID      uuid.UUID `json:"client_id"`
	DisplayName   string    `json:"display_name"`
	LastMessage   *Message  `json:"last_message"`
	HasAgentReply bool      `json:"has_agent_reply"`
	MessageCount  int       `json:"message_count"`
	IsNew         bool      `json:"is_new"`
}

type Profile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
}
