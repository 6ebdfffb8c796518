package domain

import (
	"context"

	"github.com/google/uuid"
)

const (
	RoleClient = "client"
	RoleAgent  = "agent"
)

// Actor - текущий пользователь, передается явно через context
type Actor struct {
	ID          uuid.UUID `json:"id"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name,omitempty"`
}

func (a Actor) IsAgent() bool {
	return a.Role == RoleAgent
}

// CanAccessConversation - агент видит все переписки, клиент только свою
func (a Actor) CanAccessConversation(clientID uuid.UUID) bool {
	return a.IsAgent() || a.ID == clientID
}

func IsValidRole(role string) bool {
	return role == RoleClient || role == RoleAgent
}

// OppositeRole возвращает роль собеседника
func OppositeRole(role string) string {
	if role == RoleAgent {
		return RoleClient
	}
	return RoleAgent
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
