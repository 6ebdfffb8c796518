// Package conversation группирует плоский лог сообщений в переписки по клиентам.
package conversation

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"agency_messaging/internal/domain"
)

type aggregate struct {
	last          domain.Message
	hasAgentReply bool
	count         int
}

// Index - инкрементально поддерживаемая сводка переписок: clientID -> агрегат.
// Apply идемпотентен по ID сообщения, флаг hasAgentReply никогда не сбрасывается.
type Index struct {
	mu       sync.RWMutex
	byClient map[uuid.UUID]*aggregate
	seen     map[uuid.UUID]uuid.UUID
}

func NewIndex() *Index {
	return &Index{
		byClient: make(map[uuid.UUID]*aggregate),
		seen:     make(map[uuid.UUID]uuid.UUID),
	}
}

// Apply учитывает новое или обновленное сообщение. Возвращает true, если сводка изменилась.
func (ix *Index) Apply(m domain.Message) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.apply(m)
}

func (ix *Index) apply(m domain.Message) bool {
	if clientID, ok := ix.seen[m.ID]; ok {
		return ix.applyUpdate(clientID, m)
	}
	ix.seen[m.ID] = m.ClientID

	agg, ok := ix.byClient[m.ClientID]
	if !ok {
		agg = &aggregate{}
		ix.byClient[m.ClientID] = agg
	}
	agg.count++
	// при равных временных метках побеждает сообщение, пришедшее позже
	if agg.count == 1 || !m.CreatedAt.Before(agg.last.CreatedAt) {
		agg.last = m
	}
	if m.Status == domain.MessageStatusReplied {
		agg.hasAgentReply = true
	}
	return true
}

// applyUpdate - изменение статуса уже известного сообщения
func (ix *Index) applyUpdate(clientID uuid.UUID, m domain.Message) bool {
	agg := ix.byClient[clientID]
	changed := false
	if agg.last.ID == m.ID && agg.last.Status != m.Status {
		agg.last.Status = m.Status
		changed = true
	}
	if m.Status == domain.MessageStatusReplied && !agg.hasAgentReply {
		agg.hasAgentReply = true
		changed = true
	}
	return changed
}

// Reset перестраивает индекс с нуля по полному логу
func (ix *Index) Reset(messages []domain.Message) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byClient = make(map[uuid.UUID]*aggregate)
	ix.seen = make(map[uuid.UUID]uuid.UUID, len(messages))
	for _, m := range messages {
		ix.apply(m)
	}
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byClient)
}

func (ix *Index) Summary(clientID uuid.UUID) (domain.ConversationSummary, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	agg, ok := ix.byClient[clientID]
	if !ok {
		return domain.ConversationSummary{}, false
	}
	return summaryOf(clientID, agg), true
}

// Summaries возвращает сводки, начиная с самой свежей переписки
func (ix *Index) Summaries() []domain.ConversationSummary {
	ix.mu.RLock()
	out := make([]domain.ConversationSummary, 0, len(ix.byClient))
	for clientID, agg := range ix.byClient {
		out = append(out, summaryOf(clientID, agg))
	}
	ix.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].LastMessage.CreatedAt, out[j].LastMessage.CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ClientID.String() < out[j].ClientID.String()
	})
	return out
}

func summaryOf(clientID uuid.UUID, agg *aggregate) domain.ConversationSummary {
	last := agg.last
	s := domain.ConversationSummary{
		ClientID:      clientID,
		LastMessage:   &last,
		HasAgentReply: agg.hasAgentReply,
		MessageCount:  agg.count,
	}
	s.IsNew = IsNewRequest(s)
	return s
}

// Aggregate - чистый пересчет сводок по полному набору сообщений
func Aggregate(messages []domain.Message) []domain.ConversationSummary {
	ix := NewIndex()
	ix.Reset(messages)
	return ix.Summaries()
}

// IsNewRequest - одно сообщение со статусом new и без ответа агента
func IsNewRequest(s domain.ConversationSummary) bool {
	return s.MessageCount == 1 &&
		s.LastMessage != nil &&
		s.LastMessage.Status == domain.MessageStatusNew &&
		!s.HasAgentReply
}
