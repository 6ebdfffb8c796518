package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"agency_messaging/internal/codec"
	"agency_messaging/internal/domain"
	"agency_messaging/internal/offer"
	"agency_messaging/internal/realtime"
	"agency_messaging/internal/repository"
	apperrors "agency_messaging/pkg/errors"
	"agency_messaging/pkg/logger"
)

type CreateOfferInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ServiceID    *uuid.UUID `json:"service_id,omitempty"`
	ServiceTitle string     `json:"service_title,omitempty"`
	Price        string     `json:"price"`
	DeliveryDate string     `json:"delivery_date"`
	Revisions    int        `json:"revisions"`
	Deliverables string     `json:"deliverables"`
}

// OfferResult - предложение после смены статуса; CheckoutURL заполняется при принятии
// предложения, привязанного к услуге
type OfferResult struct {
	Offer       *domain.Offer `json:"offer"`
	CheckoutURL string        `json:"checkout_url,omitempty"`
}

type OfferService interface {
	Create(ctx context.Context, actor domain.Actor, clientID uuid.UUID, input CreateOfferInput) (*domain.Offer, *domain.Message, error)
	Transition(ctx context.Context, actor domain.Actor, offerID uuid.UUID, action offer.Action) (*OfferResult, error)
	Lookup(ctx context.Context, actor domain.Actor, ids []uuid.UUID) ([]domain.Offer, error)
}

type offerService struct {
	offerRepo       repository.OfferRepository
	audit           AuditService
	checkoutBaseURL string
	events          publisher
	log             logger.Logger
}

func NewOfferService(offerRepo repository.OfferRepository, audit AuditService, broker realtime.Broker, checkoutBaseURL string, log logger.Logger) OfferService {
	return &offerService{
		offerRepo:       offerRepo,
		audit:           audit,
		checkoutBaseURL: checkoutBaseURL,
		events:          publisher{broker: broker, log: log},
		log:             log,
	}
}

func (in CreateOfferInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", apperrors.ErrBadRequest)
	}
	if in.Revisions < 0 {
		return fmt.Errorf("%w: revisions must not be negative", apperrors.ErrBadRequest)
	}
	return nil
}

func (s *offerService) Create(ctx context.Context, actor domain.Actor, clientID uuid.UUID, input CreateOfferInput) (*domain.Offer, *domain.Message, error) {
	if !actor.IsAgent() {
		return nil, nil, apperrors.ErrForbidden
	}
	if err := input.validate(); err != nil {
		return nil, nil, err
	}

	o := &domain.Offer{
		ID:           uuid.New(),
		ClientID:     clientID,
		ServiceID:    input.ServiceID,
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		Price:        input.Price,
		DeliveryDate: input.DeliveryDate,
		Revisions:    input.Revisions,
		Deliverables: input.Deliverables,
		Status:       domain.OfferStatusSent,
	}

	body, err := codec.EncodeOffer(codec.PayloadFromOffer(o, input.ServiceTitle))
	if err != nil {
		return nil, nil, fmt.Errorf("encode offer: %w", err)
	}
	message := &domain.Message{
		ID:         uuid.New(),
		ClientID:   clientID,
		SenderRole: domain.RoleAgent,
		Body:       body,
		Status:     domain.StatusForRole(domain.RoleAgent),
	}

	if err := s.offerRepo.CreateWithMessage(ctx, o, message); err != nil {
		return nil, nil, err
	}

	s.events.publish(ctx, domain.EventOfferCreated, clientID, o, false)
	s.events.publish(ctx, domain.EventMessageCreated, clientID, message, true)
	record(ctx, s.audit, s.log, actor, clientID, domain.EventTypeOfferSent, map[string]any{
		"offer_id": o.ID.String(),
		"title":    o.Title,
		"price":    o.Price,
	})

	s.log.Info("Offer sent", "offer_id", o.ID, "client_id", clientID)
	return o, message, nil
}

func (s *offerService) Transition(ctx context.Context, actor domain.Actor, offerID uuid.UUID, action offer.Action) (*OfferResult, error) {
	current, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessConversation(current.ClientID) {
		return nil, apperrors.ErrForbidden
	}

	target, err := offer.Transition(current.Status, action, actor.Role)
	if err != nil {
		return nil, err
	}

	// статус мог смениться между чтением и записью; выигрывает первая запись
	updated, err := s.offerRepo.UpdateStatusIfSent(ctx, offerID, target)
	if err != nil {
		return nil, err
	}

	s.events.publish(ctx, domain.EventOfferUpdated, updated.ClientID, updated, false)
	record(ctx, s.audit, s.log, actor, updated.ClientID, domain.OfferEventType(updated.Status), map[string]any{
		"offer_id": offerID.String(),
		"from":     current.Status,
	})
	s.log.Info("Offer status changed", "offer_id", offerID, "status", updated.Status, "role", actor.Role)

	result := &OfferResult{Offer: updated}
	if updated.Status == domain.OfferStatusAccepted {
		result.CheckoutURL = CheckoutURL(s.checkoutBaseURL, updated)
	}
	return result, nil
}

func (s *offerService) Lookup(ctx context.Context, actor domain.Actor, ids []uuid.UUID) ([]domain.Offer, error) {
	offers, err := s.offerRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if actor.IsAgent() {
		return offers, nil
	}

	visible := offers[:0]
	for _, o := range offers {
		if o.ClientID == actor.ID {
			visible = append(visible, o)
		}
	}
	return visible, nil
}

// CheckoutURL - адрес оформления заказа по принятому предложению.
// Без привязанной услуги оформлять нечего.
func CheckoutURL(baseURL string, o *domain.Offer) string {
	if o.ServiceID == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s?offer=%s", baseURL, url.PathEscape(o.ServiceID.String()), url.QueryEscape(o.ID.String()))
}
