package codec

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"agency_messaging/internal/domain"
)

const offerSentinel = "[[OFFER]]"

// OfferPayload - снимок условий предложения внутри сообщения. Статус сюда не попадает.
type OfferPayload struct {
	OfferID      uuid.UUID  `json:"offer_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ServiceID    *uuid.UUID `json:"service_id,omitempty"`
	ServiceTitle string     `json:"service_title,omitempty"`
	Price        string     `json:"price"`
	DeliveryDate string     `json:"delivery_date"`
	Revisions    int        `json:"revisions"`
	Deliverables string     `json:"deliverables"`
}

func PayloadFromOffer(offer *domain.Offer, serviceTitle string) OfferPayload {
	return OfferPayload{
		OfferID:      offer.ID,
		Title:        offer.Title,
		Description:  offer.Description,
		ServiceID:    offer.ServiceID,
		ServiceTitle: serviceTitle,
		Price:        offer.Price,
		DeliveryDate: offer.DeliveryDate,
		Revisions:    offer.Revisions,
		Deliverables: offer.Deliverables,
	}
}

func EncodeOffer(payload OfferPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return offerSentinel + string(data), nil
}

func IsOfferBody(body string) bool {
	_, ok := decodeOffer(body)
	return ok
}

func decodeOffer(body string) (OfferPayload, bool) {
	if !strings.HasPrefix(body, offerSentinel) {
		return OfferPayload{}, false
	}
	var payload OfferPayload
	if err := json.Unmarshal([]byte(body[len(offerSentinel):]), &payload); err != nil {
		return OfferPayload{}, false
	}
	if payload.OfferID == uuid.Nil {
		return OfferPayload{}, false
	}
	return payload, true
}
