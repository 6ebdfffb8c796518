package domain

import (
	"time"

	"github.com/google/uuid"
)

// Offer - коммерческое предложение агентства. Актуальный статус хранится только здесь,
// в сообщении-носителе лежит снимок условий на момент отправки.
type Offer struct {
	ID           uuid.UUID  `json:"id"`
	ClientID     uuid.UUID  `json:"client_id"`
	ServiceID    *uuid.UUID `json:"service_id,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Price        string     `json:"price"`
	DeliveryDate string     `json:"delivery_date"`
	Revisions    int        `json:"revisions"`
	Deliverables string     `json:"deliverables"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const (
	OfferStatusSent      = "sent"
	OfferStatusAccepted  = "accepted"
	OfferStatusRejected  = "rejected"
	OfferStatusWithdrawn = "withdrawn"
)
