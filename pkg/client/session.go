package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"agency_messaging/internal/conversation"
	"agency_messaging/internal/domain"
	"agency_messaging/internal/realtime"
)

const (
	defaultHeartbeat = 30 * time.Second
	writeWait        = 10 * time.Second
)

type SessionOptions struct {
	// Role - роль текущего пользователя; typing-события своей роли не зажигают индикатор
	Role string
	// HeartbeatInterval - как часто подтверждать присутствие (по умолчанию 30с)
	HeartbeatInterval time.Duration
	// OnEvent вызывается после применения каждого события к локальному состоянию
	OnEvent func(domain.Event)
	// OnTyping вызывается при смене индикатора "собеседник печатает"
	OnTyping func(typing bool)
	// Initial - уже загруженная история переписки
	Initial []domain.Message
}

// Session - realtime-подключение к одной переписке. Держит локальную копию
// сообщений, состояние присутствия и индикатор набора текста собеседника.
type Session struct {
	ws       *websocket.Conn
	clientID uuid.UUID
	opts     SessionOptions

	throttle  *realtime.Throttle
	indicator *realtime.TypingIndicator

	writeMu sync.Mutex

	mu       sync.RWMutex
	messages []domain.Message
	presence []domain.PresenceEntry
	offers   map[uuid.UUID]string

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial открывает сессию. baseURL - http(s) адрес сервера, схема заменяется на ws(s).
func Dial(ctx context.Context, baseURL, token string, clientID uuid.UUID, opts SessionOptions) (*Session, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws/conversations/" + clientID.String()
	u.RawQuery = url.Values{"token": {token}}.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial conversation: %w", err)
	}
	return newSession(ws, clientID, opts), nil
}

func newSession(ws *websocket.Conn, clientID uuid.UUID, opts SessionOptions) *Session {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeat
	}
	s := &Session{
		ws:       ws,
		clientID: clientID,
		opts:     opts,
		throttle: realtime.NewThrottle(realtime.TypingInterval, time.Now),
		messages: conversation.Thread(opts.Initial),
		offers:   make(map[uuid.UUID]string),
		done:     make(chan struct{}),
	}
	s.indicator = realtime.NewTypingIndicator(opts.Role, opts.OnTyping)

	go s.readLoop()
	go s.heartbeatLoop()
	return s
}

// Typing сообщает собеседнику, что пользователь печатает. Вызывать можно
// на каждое нажатие клавиши: в сеть уходит не больше одного кадра за 1.5с.
func (s *Session) Typing() error {
	if !s.throttle.Allow("typing") {
		return nil
	}
	return s.writeFrame(realtime.FrameTyping)
}

func (s *Session) writeFrame(frameType string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteJSON(realtime.ClientFrame{Type: frameType})
}

func (s *Session) OtherTyping() bool {
	return s.indicator.IsTyping()
}

// OtherOnline - есть ли в переписке открытое окно другой роли
func (s *Session) OtherOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return realtime.OtherRoleOnline(s.presence, s.opts.Role)
}

func (s *Session) Presence() []domain.PresenceEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PresenceEntry(nil), s.presence...)
}

// Messages - локальная копия переписки в хронологическом порядке
func (s *Session) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.messages...)
}

// AddMessages вливает сообщения, полученные в ответ на REST-вызов; дубликаты пропускаются
func (s *Session) AddMessages(msgs ...domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = conversation.Merge(s.messages, msgs...)
}

// OfferStatus - последний известный статус предложения из offer.updated
func (s *Session) OfferStatus(offerID uuid.UUID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.offers[offerID]
	return status, ok
}

// Done закрывается, когда соединение разорвано
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err - причина разрыва после закрытия Done
func (s *Session) Err() error {
	<-s.done
	return s.err
}

func (s *Session) Close() error {
	s.writeMu.Lock()
	_ = s.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	s.writeMu.Unlock()
	err := s.ws.Close()
	s.finish(nil)
	return err
}

func (s *Session) finish(err error) {
	s.closeOnce.Do(func() {
		s.err = err
		s.indicator.Stop()
		close(s.done)
	})
}

func (s *Session) readLoop() {
	for {
		var event domain.Event
		if err := s.ws.ReadJSON(&event); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = nil
			}
			s.finish(err)
			return
		}
		s.apply(event)
		if s.opts.OnEvent != nil {
			s.opts.OnEvent(event)
		}
	}
}

func (s *Session) apply(event domain.Event) {
	switch event.Type {
	case domain.EventTyping:
		s.indicator.Observe(event)
	case domain.EventMessageCreated:
		var msg domain.Message
		if event.DecodePayload(&msg) == nil {
			s.AddMessages(msg)
		}
	case domain.EventMessageUpdated:
		var msg domain.Message
		if event.DecodePayload(&msg) == nil {
			s.mu.Lock()
			s.messages = conversation.ReplaceStatus(s.messages, msg)
			s.mu.Unlock()
		}
	case domain.EventPresenceSync:
		var payload domain.PresenceSyncPayload
		if event.DecodePayload(&payload) == nil {
			s.mu.Lock()
			s.presence = payload.Entries
			s.mu.Unlock()
		}
	case domain.EventOfferCreated, domain.EventOfferUpdated:
		var o domain.Offer
		if event.DecodePayload(&o) == nil {
			s.mu.Lock()
			s.offers[o.ID] = o.Status
			s.mu.Unlock()
		}
	}
}

func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.writeFrame(realtime.FrameHeartbeat); err != nil {
				return
			}
		}
	}
}
