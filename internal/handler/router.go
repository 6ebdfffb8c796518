package handler

import (
	"github.com/gin-gonic/gin"

	"agency_messaging/internal/config"
	"agency_messaging/internal/middleware"
	"agency_messaging/pkg/logger"
)

// NewRouter собирает gin-движок со всеми маршрутами API
func NewRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)

	// Загруженные вложения
	router.Static("/uploads", cfg.Storage.Dir)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	{
		conversations := v1.Group("/conversations")
		{
			conversations.GET("", middleware.RequireAgent(), handlers.Conversation.List)
			conversations.GET("/:clientId/messages", handlers.Conversation.Messages)
			conversations.POST("/:clientId/messages", rateLimitMiddleware.Limit("send"), handlers.Conversation.Send)
			conversations.PATCH("/:clientId/messages/:messageId/status", middleware.RequireAgent(), handlers.Conversation.SetStatus)
			conversations.POST("/:clientId/attachments", rateLimitMiddleware.Limit("upload"), handlers.Conversation.UploadAttachments)
			conversations.POST("/:clientId/voice-notes", rateLimitMiddleware.Limit("upload"), handlers.Conversation.UploadVoiceNote)
			conversations.GET("/:clientId/presence", handlers.Conversation.Presence)
			conversations.POST("/:clientId/offers", middleware.RequireAgent(), handlers.Conversation.CreateOffer)
			conversations.GET("/:clientId/audit", middleware.RequireAgent(), handlers.Conversation.Audit)
		}

		offers := v1.Group("/offers")
		{
			offers.GET("", handlers.Offer.Lookup)
			offers.POST("/:id/accept", handlers.Offer.Accept)
			offers.POST("/:id/reject", handlers.Offer.Reject)
			offers.POST("/:id/withdraw", handlers.Offer.Withdraw)
		}

		preferences := v1.Group("/preferences")
		{
			preferences.GET("", handlers.Preference.All)
			preferences.GET("/:key", handlers.Preference.Get)
			preferences.PUT("/:key", handlers.Preference.Set)
		}
	}

	// WebSocket: токен в query, браузер не передает заголовки при апгрейде
	ws := router.Group("/ws")
	ws.Use(authMiddleware.RequireQueryToken())
	{
		ws.GET("/conversations/:clientId", handlers.WebSocket.Conversation)
		ws.GET("/inbox", handlers.WebSocket.Inbox)
	}

	return router
}
