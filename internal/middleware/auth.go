package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agency_messaging/internal/domain"
	"agency_messaging/pkg/jwt"
	"agency_messaging/pkg/logger"
)

const actorKey = "actor"

// AuthMiddleware проверяет JWT, выпущенные внешним сервисом учетных записей,
// и кладет domain.Actor в контекст gin и в context запроса
type AuthMiddleware struct {
	secret string
	log    logger.Logger
}

func NewAuthMiddleware(secret string, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: secret, log: log}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		m.authenticate(c, parts[1])
	}
}

// RequireQueryToken - для WebSocket: браузер не умеет слать заголовки при апгрейде
func (m *AuthMiddleware) RequireQueryToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token query parameter required"})
			c.Abort()
			return
		}
		m.authenticate(c, token)
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context, token string) {
	claims, err := jwt.ValidateToken(token, m.secret)
	if err != nil {
		m.log.Warn("Token validation failed", "error", err)
		msg := "Invalid or expired token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "Token expired"
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
		c.Abort()
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil || !domain.IsValidRole(claims.Role) {
		m.log.Warn("Invalid identity in token", "user_id", claims.UserID, "role", claims.Role)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid identity in token"})
		c.Abort()
		return
	}

	actor := domain.Actor{ID: userID, Role: claims.Role, DisplayName: claims.DisplayName}
	c.Set(actorKey, actor)
	c.Request = c.Request.WithContext(domain.WithActor(c.Request.Context(), actor))
	c.Next()
}

// ActorFrom возвращает пользователя, установленного RequireAuth
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// RequireAgent пропускает только агентов
func RequireAgent() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || !actor.IsAgent() {
			c.JSON(http.StatusForbidden, gin.H{"error": "agent role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
