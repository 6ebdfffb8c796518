package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agency_messaging/internal/service"
	"agency_messaging/pkg/logger"
)

type PreferenceHandler struct {
	preferenceService service.PreferenceService
	log               logger.Logger
}

func NewPreferenceHandler(preferenceService service.PreferenceService, log logger.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		preferenceService: preferenceService,
		log:               log,
	}
}

func (h *PreferenceHandler) All(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	prefs, err := h.preferenceService.All(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func (h *PreferenceHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	key := c.Param("key")
	value, err := h.preferenceService.Get(c.Request.Context(), actor, key)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

type SetPreferenceRequest struct {
	Value string `json:"value"`
}

func (h *PreferenceHandler) Set(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req SetPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := c.Param("key")
	if err := h.preferenceService.Set(c.Request.Context(), actor, key, req.Value); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": req.Value})
}
