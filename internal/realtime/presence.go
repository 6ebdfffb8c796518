package realtime

import (
	"sort"
	"time"

	"agency_messaging/internal/domain"
)

// OtherRoleOnline - есть ли в состоянии присутствия хотя бы одно окно собеседника
func OtherRoleOnline(entries []domain.PresenceEntry, myRole string) bool {
	other := domain.OppositeRole(myRole)
	for _, e := range entries {
		if e.Role == other {
			return true
		}
	}
	return false
}

// Fresh оставляет записи, обновленные не раньше now-ttl
func Fresh(entries []domain.PresenceEntry, now time.Time, ttl time.Duration) []domain.PresenceEntry {
	out := make([]domain.PresenceEntry, 0, len(entries))
	for _, e := range entries {
		if now.Sub(e.LastSeen) <= ttl {
			out = append(out, e)
		}
	}
	return out
}

// Stale - ключи записей, которые не обновлялись дольше ttl
func Stale(entries []domain.PresenceEntry, now time.Time, ttl time.Duration) []string {
	var keys []string
	for _, e := range entries {
		if now.Sub(e.LastSeen) > ttl {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// SortEntries упорядочивает записи для стабильной выдачи клиентам
func SortEntries(entries []domain.PresenceEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Role != entries[j].Role {
			return entries[i].Role < entries[j].Role
		}
		return entries[i].Key < entries[j].Key
	})
}
