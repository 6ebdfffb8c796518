// Package offer описывает жизненный цикл коммерческого предложения:
// sent -> accepted | rejected | withdrawn. Все состояния, кроме sent, конечные.
package offer

import (
	"fmt"

	"agency_messaging/internal/domain"
	apperrors "agency_messaging/pkg/errors"
)

// Action - действие пользователя над предложением
type Action string

const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionWithdraw Action = "withdraw"
)

// target - целевой статус и роль, которой разрешено действие
var transitions = map[Action]struct {
	status string
	role   string
}{
	ActionAccept:   {status: domain.OfferStatusAccepted, role: domain.RoleClient},
	ActionReject:   {status: domain.OfferStatusRejected, role: domain.RoleClient},
	ActionWithdraw: {status: domain.OfferStatusWithdrawn, role: domain.RoleAgent},
}

func IsTerminal(status string) bool {
	switch status {
	case domain.OfferStatusAccepted, domain.OfferStatusRejected, domain.OfferStatusWithdrawn:
		return true
	default:
		return false
	}
}

func IsValidStatus(status string) bool {
	return status == domain.OfferStatusSent || IsTerminal(status)
}

// Target возвращает статус, в который переводит действие
func Target(action Action) (string, bool) {
	t, ok := transitions[action]
	return t.status, ok
}

// Transition проверяет, может ли роль выполнить действие над предложением в текущем статусе,
// и возвращает новый статус
func Transition(current string, action Action, role string) (string, error) {
	t, ok := transitions[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", apperrors.ErrInvalidTransition, action)
	}
	if IsTerminal(current) {
		return "", fmt.Errorf("%w: offer is %s", apperrors.ErrOfferClosed, current)
	}
	if current != domain.OfferStatusSent {
		return "", fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidTransition, current)
	}
	if role != t.role {
		return "", fmt.Errorf("%w: %s cannot %s an offer", apperrors.ErrForbidden, role, action)
	}
	return t.status, nil
}

// CanTransitionTo - проверка пары статусов без учета роли
func CanTransitionTo(current, next string) bool {
	return current == domain.OfferStatusSent && IsTerminal(next)
}

// AvailableActions - действия, которые интерфейс может показать роли
func AvailableActions(status, role string) []Action {
	if status != domain.OfferStatusSent {
		return nil
	}
	if role == domain.RoleAgent {
		return []Action{ActionWithdraw}
	}
	return []Action{ActionAccept, ActionReject}
}
