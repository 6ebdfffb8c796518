package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"agency_messaging/internal/domain"
	"agency_messaging/pkg/logger"
)

// RedisBroker - брокер поверх Redis pub/sub, связывает несколько экземпляров сервиса
type RedisBroker struct {
	redis  *redis.Client
	prefix string
	log    logger.Logger
}

func NewRedisBroker(client *redis.Client, prefix string, log logger.Logger) *RedisBroker {
	return &RedisBroker{redis: client, prefix: prefix, log: log}
}

func (b *RedisBroker) channel(topic string) string {
	return b.prefix + topic
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.redis.Publish(ctx, b.channel(topic), data).Err(); err != nil {
		b.log.Error("Failed to publish event", "topic", topic, "type", event.Type, "error", err)
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := b.redis.Subscribe(ctx, b.channel(topic))
	// ждем подтверждения подписки, иначе первые события могут потеряться
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		b.log.Error("Failed to subscribe", "topic", topic, "error", err)
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := &redisSubscription{
		ps: ps,
		ch: make(chan domain.Event, subscriptionBuffer),
	}
	go sub.pump(ctx, topic, b.log)
	return sub, nil
}

func (b *RedisBroker) Close() error {
	return nil
}

type redisSubscription struct {
	ps *redis.PubSub
	ch chan domain.Event
}

func (s *redisSubscription) pump(ctx context.Context, topic string, log logger.Logger) {
	defer close(s.ch)
	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			s.ps.Close()
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn("Failed to decode event", "topic", topic, "error", err)
				continue
			}
			select {
			case s.ch <- event:
			default:
				log.Warn("Subscriber is too slow, event dropped", "topic", topic, "type", event.Type)
			}
		}
	}
}

func (s *redisSubscription) Events() <-chan domain.Event {
	return s.ch
}

func (s *redisSubscription) Close() error {
	return s.ps.Close()
}
