package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agency_messaging/internal/offer"
	"agency_messaging/internal/service"
	"agency_messaging/pkg/logger"
)

const maxLookupIDs = 100

type OfferHandler struct {
	offerService service.OfferService
	log          logger.Logger
}

func NewOfferHandler(offerService service.OfferService, log logger.Logger) *OfferHandler {
	return &OfferHandler{
		offerService: offerService,
		log:          log,
	}
}

// Lookup - актуальные статусы предложений по списку ?ids=a,b
func (h *OfferHandler) Lookup(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var ids []uuid.UUID
	for _, raw := range strings.Split(c.Query("ids"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer id: " + raw})
			return
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids query parameter required"})
		return
	}
	if len(ids) > maxLookupIDs {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many ids"})
		return
	}

	offers, err := h.offerService.Lookup(c.Request.Context(), actor, ids)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

func (h *OfferHandler) Accept(c *gin.Context) {
	h.transition(c, offer.ActionAccept)
}

func (h *OfferHandler) Reject(c *gin.Context) {
	h.transition(c, offer.ActionReject)
}

func (h *OfferHandler) Withdraw(c *gin.Context) {
	h.transition(c, offer.ActionWithdraw)
}

func (h *OfferHandler) transition(c *gin.Context, action offer.Action) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	offerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.offerService.Transition(c.Request.Context(), actor, offerID, action)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
