package realtime

import (
	"sync"
	"time"
)

// TypingInterval - не чаще одного typing-события за интервал от одного участника
const TypingInterval = 1500 * time.Millisecond

// Throttle пропускает не более одного события на ключ за интервал.
// Лишние события отбрасываются, а не откладываются.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	last     map[string]time.Time
}

func NewThrottle(interval time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{
		interval: interval,
		now:      now,
		last:     make(map[string]time.Time),
	}
}

func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[key] = now

	if len(t.last) > 1024 {
		t.prune(now)
	}
	return true
}

// prune удаляет ключи, у которых интервал уже истек
func (t *Throttle) prune(now time.Time) {
	for key, last := range t.last {
		if now.Sub(last) >= t.interval {
			delete(t.last, key)
		}
	}
}
