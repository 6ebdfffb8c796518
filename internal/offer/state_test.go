package offer

import (
	"errors"
	"testing"

	"agency_messaging/internal/domain"
	apperrors "agency_messaging/pkg/errors"
)

func TestTransition_FromSent(t *testing.T) {
	tests := []struct {
		action Action
		role   string
		want   string
		err    error
	}{
		{ActionAccept, domain.RoleClient, domain.OfferStatusAccepted, nil},
		{ActionReject, domain.RoleClient, domain.OfferStatusRejected, nil},
		{ActionWithdraw, domain.RoleAgent, domain.OfferStatusWithdrawn, nil},
		{ActionAccept, domain.RoleAgent, "", apperrors.ErrForbidden},
		{ActionWithdraw, domain.RoleClient, "", apperrors.ErrForbidden},
		{Action("resend"), domain.RoleAgent, "", apperrors.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+tt.role, func(t *testing.T) {
			got, err := Transition(domain.OfferStatusSent, tt.action, tt.role)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTransition_TerminalStatesAreClosed(t *testing.T) {
	for _, status := range []string{domain.OfferStatusAccepted, domain.OfferStatusRejected, domain.OfferStatusWithdrawn} {
		for action, tr := range transitions {
			if _, err := Transition(status, action, tr.role); !errors.Is(err, apperrors.ErrOfferClosed) {
				t.Errorf("%s from %s: expected ErrOfferClosed, got %v", action, status, err)
			}
		}
	}
}

func TestCanTransitionTo(t *testing.T) {
	if CanTransitionTo(domain.OfferStatusSent, domain.OfferStatusSent) {
		t.Error("sent -> sent must be rejected")
	}
	if !CanTransitionTo(domain.OfferStatusSent, domain.OfferStatusAccepted) {
		t.Error("sent -> accepted must be allowed")
	}
	if CanTransitionTo(domain.OfferStatusAccepted, domain.OfferStatusRejected) {
		t.Error("accepted -> rejected must be rejected")
	}
}

func TestAvailableActions(t *testing.T) {
	if got := AvailableActions(domain.OfferStatusSent, domain.RoleClient); len(got) != 2 {
		t.Errorf("client should see accept and reject, got %v", got)
	}
	if got := AvailableActions(domain.OfferStatusSent, domain.RoleAgent); len(got) != 1 || got[0] != ActionWithdraw {
		t.Errorf("agent should see withdraw, got %v", got)
	}
	if got := AvailableActions(domain.OfferStatusAccepted, domain.RoleClient); got != nil {
		t.Errorf("terminal offer should expose no actions, got %v", got)
	}
}

func TestScenario_AcceptThenRejectIgnored(t *testing.T) {
	status, err := Transition(domain.OfferStatusSent, ActionAccept, domain.RoleClient)
	if err != nil || status != domain.OfferStatusAccepted {
		t.Fatalf("accept failed: %v %s", err, status)
	}
	if _, err := Transition(status, ActionReject, domain.RoleClient); !errors.Is(err, apperrors.ErrOfferClosed) {
		t.Errorf("reject after accept should be closed, got %v", err)
	}
}
