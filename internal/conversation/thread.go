package conversation

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"agency_messaging/internal/domain"
)

// Thread возвращает копию сообщений, отсортированную по created_at по возрастанию.
// Сортировка стабильная: при равных метках сохраняется порядок поступления.
func Thread(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, len(messages))
	copy(out, messages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GroupByClient раскладывает плоский лог по клиентам, каждая переписка отсортирована
func GroupByClient(messages []domain.Message) map[uuid.UUID][]domain.Message {
	groups := make(map[uuid.UUID][]domain.Message)
	for _, m := range messages {
		groups[m.ClientID] = append(groups[m.ClientID], m)
	}
	for clientID, msgs := range groups {
		groups[clientID] = Thread(msgs)
	}
	return groups
}

// Merge добавляет входящие сообщения в локальное состояние, пропуская уже известные ID.
// Так realtime-уведомление и последующая перезагрузка не дублируют сообщение.
func Merge(existing []domain.Message, incoming ...domain.Message) []domain.Message {
	known := make(map[uuid.UUID]struct{}, len(existing))
	for _, m := range existing {
		known[m.ID] = struct{}{}
	}
	merged := existing
	added := false
	for _, m := range incoming {
		if _, ok := known[m.ID]; ok {
			continue
		}
		known[m.ID] = struct{}{}
		if !added {
			merged = append(make([]domain.Message, 0, len(existing)+len(incoming)), existing...)
			added = true
		}
		merged = append(merged, m)
	}
	if !added {
		return existing
	}
	return Thread(merged)
}

// ReplaceStatus применяет обновление статуса к известному сообщению, не меняя порядок
func ReplaceStatus(existing []domain.Message, updated domain.Message) []domain.Message {
	for i := range existing {
		if existing[i].ID == updated.ID {
			existing[i].Status = updated.Status
			break
		}
	}
	return existing
}

// Filter оставляет переписки, чье имя содержит query без учета регистра.
// Пустой запрос возвращает все переписки.
func Filter(summaries []domain.ConversationSummary, query string) []domain.ConversationSummary {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return summaries
	}
	out := make([]domain.ConversationSummary, 0, len(summaries))
	for _, s := range summaries {
		name := s.DisplayName
		if name == "" {
			name = domain.DefaultClientLabel
		}
		if strings.Contains(strings.ToLower(name), query) {
			out = append(out, s)
		}
	}
	return out
}
