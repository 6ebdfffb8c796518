package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message - единица переписки между клиентом и агентством.
// Body может содержать reply-заголовок, offer-payload или строки вложений.
type Message struct {
	ID         uuid.UUID `json:"id"`
	ClientID   uuid.UUID `json:"client_id"`
	SenderRole string    `json:"sender_role"`
	Body       string    `json:"body"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	MessageStatusNew     = "new"
	MessageStatusReplied = "replied"
)

func IsValidMessageStatus(status string) bool {
	return status == MessageStatusNew || status == MessageStatusReplied
}

// CanChangeMessageStatus - статус сообщения меняется только new -> replied
func CanChangeMessageStatus(from, to string) bool {
	return from == to || (from == MessageStatusNew && to == MessageStatusReplied)
}

// StatusForRole - статус нового сообщения: сообщения агента сразу помечаются как replied
func StatusForRole(role string) string {
	if role == RoleAgent {
		return MessageStatusReplied
	}
	return MessageStatusNew
}
