// Package realtime доставляет события переписки между экземплярами сервиса
// и открытыми WebSocket-соединениями.
package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"agency_messaging/internal/domain"
	"agency_messaging/pkg/logger"
)

// InboxTopic - топик входящих агента: сюда дублируются все новые и измененные сообщения
const InboxTopic = "inbox"

const subscriptionBuffer = 64

func ConversationTopic(clientID uuid.UUID) string {
	return "conversation:" + clientID.String()
}

type Subscription interface {
	Events() <-chan domain.Event
	Close() error
}

type Broker interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Close() error
}

// MemoryBroker - брокер внутри одного процесса (тесты и локальный запуск)
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
	log    logger.Logger
}

func NewMemoryBroker(log logger.Logger) *MemoryBroker {
	return &MemoryBroker{
		subs: make(map[string]map[*memorySubscription]struct{}),
		log:  log,
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, topic string, event domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[topic] {
		select {
		case sub.ch <- event:
		default:
			b.log.Warn("Subscriber is too slow, event dropped", "topic", topic, "type", event.Type)
		}
	}
	return ctx.Err()
}

func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &memorySubscription{
		broker: b,
		topic:  topic,
		ch:     make(chan domain.Event, subscriptionBuffer),
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*memorySubscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}

	sub.stop = context.AfterFunc(ctx, func() { b.remove(sub) })

	return sub, nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for topic, subs := range b.subs {
		for sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
		delete(b.subs, topic)
	}
	return nil
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.topic)
		}
	}
	sub.once.Do(func() { close(sub.ch) })
}

type memorySubscription struct {
	broker *MemoryBroker
	topic  string
	ch     chan domain.Event
	once   sync.Once
	stop   func() bool
}

func (s *memorySubscription) Events() <-chan domain.Event {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.stop()
	s.broker.remove(s)
	return nil
}
