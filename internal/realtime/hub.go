package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"agency_messaging/internal/domain"
	"agency_messaging/pkg/logger"
)

const writeWait = 10 * time.Second

// Типы кадров, которые присылает клиент
const (
	FrameTyping    = "typing"
	FrameHeartbeat = "heartbeat"
)

type ClientFrame struct {
	Type string `json:"type"`
}

// Peer - получатель событий топика
type Peer interface {
	ID() string
	Send(event domain.Event) error
}

// Conn - одно WebSocket-соединение
type Conn struct {
	id          string
	Role        string
	WS          *websocket.Conn
	ConnectedAt time.Time
	writeMu     sync.Mutex
}

func NewConn(id, role string, ws *websocket.Conn) *Conn {
	return &Conn{id: id, Role: role, WS: ws, ConnectedAt: time.Now()}
}

func (c *Conn) ID() string {
	return c.id
}

// Send пишет событие в соединение (потокобезопасно)
func (c *Conn) Send(event domain.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.WS.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WS.WriteJSON(event)
}

// ReadFrame читает очередной кадр клиента
func (c *Conn) ReadFrame() (ClientFrame, error) {
	var frame ClientFrame
	err := c.WS.ReadJSON(&frame)
	return frame, err
}

// Hub держит одну подписку на брокер для каждого топика с активными соединениями
// и раздает события всем соединениям топика.
type Hub struct {
	broker Broker
	log    logger.Logger

	mu     sync.Mutex
	topics map[string]*topicPeers
}

type topicPeers struct {
	peers  map[string]Peer
	cancel context.CancelFunc
}

func NewHub(broker Broker, log logger.Logger) *Hub {
	return &Hub{
		broker: broker,
		log:    log,
		topics: make(map[string]*topicPeers),
	}
}

// Join добавляет соединение в топик. Подписка на брокер выполняется вне h.mu.
func (h *Hub) Join(topic string, peer Peer) error {
	h.mu.Lock()
	if tp, ok := h.topics[topic]; ok {
		tp.peers[peer.ID()] = peer
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := h.broker.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if tp, ok := h.topics[topic]; ok {
		// топик успел подписать параллельный Join
		cancel()
		sub.Close()
		tp.peers[peer.ID()] = peer
		return nil
	}
	h.topics[topic] = &topicPeers{peers: map[string]Peer{peer.ID(): peer}, cancel: cancel}
	go h.pump(topic, sub)
	return nil
}

func (h *Hub) Leave(topic string, peer Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tp, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(tp.peers, peer.ID())
	if len(tp.peers) == 0 {
		tp.cancel()
		delete(h.topics, topic)
	}
}

// Count - число соединений топика на этом экземпляре
func (h *Hub) Count(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if tp, ok := h.topics[topic]; ok {
		return len(tp.peers)
	}
	return 0
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, tp := range h.topics {
		tp.cancel()
		delete(h.topics, topic)
	}
}

func (h *Hub) pump(topic string, sub Subscription) {
	defer sub.Close()
	for event := range sub.Events() {
		h.deliver(topic, event)
	}
}

func (h *Hub) deliver(topic string, event domain.Event) {
	h.mu.Lock()
	tp, ok := h.topics[topic]
	var peers []Peer
	if ok {
		peers = make([]Peer, 0, len(tp.peers))
		for _, p := range tp.peers {
			peers = append(peers, p)
		}
	}
	h.mu.Unlock()

	for _, p := range peers {
		if err := p.Send(event); err != nil {
			h.log.Warn("Failed to deliver event", "topic", topic, "peer", p.ID(), "error", err)
		}
	}
}
