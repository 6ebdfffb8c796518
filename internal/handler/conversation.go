package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agency_messaging/internal/codec"
	"agency_messaging/internal/realtime"
	"agency_messaging/internal/service"
	apperrors "agency_messaging/pkg/errors"
	"agency_messaging/pkg/logger"
)

type ConversationHandler struct {
	chatService       service.ChatService
	inboxService      service.InboxService
	attachmentService service.AttachmentService
	presenceService   service.PresenceService
	offerService      service.OfferService
	auditService      service.AuditService
	log               logger.Logger
}

func NewConversationHandler(services *service.Services, log logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		chatService:       services.Chat,
		inboxService:      services.Inbox,
		attachmentService: services.Attachment,
		presenceService:   services.Presence,
		offerService:      services.Offer,
		auditService:      services.Audit,
		log:               log,
	}
}

// Audit - журнал действий по переписке, ?limit= ограничивает число записей
func (h *ConversationHandler) Audit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	clientID, ok := uuidParam(c, "clientId")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	entries, err := h.auditService.History(c.Request.Context(), actor, clientID, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// List - список переписок для агента, ?q= фильтрует по имени клиента
func (h *ConversationHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	summaries, err := h.inboxService.List(c.Request.Context(), actor, c.Query("q"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

func (h *ConversationHandler) Messages(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	clientID, ok := uuidParam(c, "clientId")
	if !ok {
		return
	}

	messages, err := h.chatService.Thread(c.Request.Context(), actor, clientID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type SendMessageRequest struct {
	Text        string             `json:"text"`
	ReplyToID   *uuid.UUID         `json:"reply_to_id"`
	Attachments []codec.Attachment `json:"attachments"`
}

func (h *ConversationHandler) Send(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	clientID, ok := uuidParam(c, "clientId")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.chatService.Send(c.Request.Context(), actor, clientID, service.SendMessageInput{
		Text:        req.Text,
		ReplyToID:   req.ReplyToID,
		Attachments: req.Attachments,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, service.ThreadMessage{Message: *msg, View: codec.ViewOf(codec.Decode(msg.Body))})
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *ConversationHandler) SetStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	clientID, ok := uuidParam(c, "clientId")
	if !ok {
		return
	}
	messageID, ok := uuidParam(c, "messageId")
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.chatService.SetStatus(c.Request.Context(), actor, clientID, messageID, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// UploadAttachments принимает multipart-поле "files". Ответ содержит результат
// по каждому файлу; неудачные файлы не отменяют успешные.
func (h *ConversationHandler) UploadAttachments(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	clientID, ok := uuidParam(c, "clientId")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form expected"})
		return
	}

	headers := form.File["files"]
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, uploadFromHeader(fh))
	}

	results, err := h.attachmentService.UploadAll(c.Request.Context(), actor, clientID, uploads)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	status := http.StatusOK
	if failed == len(results) {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"results": results, "failed": failed})
}

// UploadVoiceNote принимает одну аудиозапись в поле "file"
func (h *ConversationHandler) UploadVoiceNote(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	clientID, ok := uuidParam(c, "clientId")
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	upload := uploadFromHeader(fh)
	if !service.IsAudio(upload.ContentType) {
		respondError(c, h.log, fmt.Errorf("%w: voice note must be audio, got %q", apperrors.ErrBadRequest, upload.ContentType))
		return
	}

	att, err := h.attachmentService.UploadVoiceNote(c.Request.Context(), actor, clientID, upload)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attachment": att})
}

func (h *ConversationHandler) Presence(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	clientID, ok := uuidParam(c, "clientId")
	if !ok {
		return
	}

	entries, err := h.presenceService.State(c.Request.Context(), actor, clientID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries":      entries,
		"other_online": realtime.OtherRoleOnline(entries, actor.Role),
	})
}

func (h *ConversationHandler) CreateOffer(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	clientID, ok := uuidParam(c, "clientId")
	if !ok {
		return
	}

	var req service.CreateOfferInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, msg, err := h.offerService.Create(c.Request.Context(), actor, clientID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"offer": created, "message": msg})
}

func uploadFromHeader(fh *multipart.FileHeader) service.Upload {
	return service.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
