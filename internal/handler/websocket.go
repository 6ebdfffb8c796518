package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"agency_messaging/internal/domain"
	"agency_messaging/internal/realtime"
	"agency_messaging/internal/service"
	"agency_messaging/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxFrameSize = 4096
	leaveTimeout = 5 * time.Second
)

type WebSocketHandler struct {
	hub             *realtime.Hub
	presenceService service.PresenceService
	upgrader        websocket.Upgrader
	log             logger.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, presenceService service.PresenceService, allowedOrigins []string, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:             hub,
		presenceService: presenceService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// не браузерные клиенты (SDK) Origin не присылают
		return origin == "" || set["*"] || set[origin]
	}
}

// Conversation - realtime-канал одной переписки: события брокера наружу,
// typing и heartbeat внутрь. Соединение регистрируется в присутствии.
func (h *WebSocketHandler) Conversation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	clientID, ok := uuidParam(c, "clientId")
	if !ok {
		return
	}
	if !actor.CanAccessConversation(clientID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer ws.Close()

	conn := realtime.NewConn(uuid.NewString(), actor.Role, ws)
	topic := realtime.ConversationTopic(clientID)
	if err := h.hub.Join(topic, conn); err != nil {
		h.log.Error("Failed to subscribe to conversation", "client_id", clientID, "error", err)
		return
	}
	defer h.hub.Leave(topic, conn)

	ctx := context.WithoutCancel(c.Request.Context())
	key := h.presenceService.Join(ctx, clientID, actor.Role)
	defer func() {
		leaveCtx, cancel := context.WithTimeout(ctx, leaveTimeout)
		defer cancel()
		h.presenceService.Leave(leaveCtx, clientID, key)
	}()

	h.log.Info("Conversation socket opened", "client_id", clientID, "user_id", actor.ID, "role", actor.Role)

	h.readLoop(conn, func(frame realtime.ClientFrame) {
		switch frame.Type {
		case realtime.FrameTyping:
			h.presenceService.Typing(ctx, actor, clientID)
		case realtime.FrameHeartbeat:
			h.presenceService.Heartbeat(ctx, clientID, key, actor.Role)
		default:
			h.log.Debug("Unknown frame", "type", frame.Type)
		}
	})

	h.log.Info("Conversation socket closed", "client_id", clientID, "user_id", actor.ID)
}

// Inbox - поток событий сообщений всех переписок для агента
func (h *WebSocketHandler) Inbox(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if actor.Role != domain.RoleAgent {
		c.JSON(http.StatusForbidden, gin.H{"error": "agent role required"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer ws.Close()

	conn := realtime.NewConn(uuid.NewString(), actor.Role, ws)
	if err := h.hub.Join(realtime.InboxTopic, conn); err != nil {
		h.log.Error("Failed to subscribe to inbox", "error", err)
		return
	}
	defer h.hub.Leave(realtime.InboxTopic, conn)

	h.readLoop(conn, func(realtime.ClientFrame) {})
}

// readLoop читает кадры до закрытия соединения и держит его живым пингами
func (h *WebSocketHandler) readLoop(conn *realtime.Conn, onFrame func(realtime.ClientFrame)) {
	ws := conn.WS
	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("Socket closed unexpectedly", "peer", conn.ID(), "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		onFrame(frame)
	}
}
