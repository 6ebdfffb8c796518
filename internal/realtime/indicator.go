package realtime

import (
	"sync"
	"time"

	"agency_messaging/internal/domain"
)

// TypingTimeout - сколько держится индикатор после последнего typing-события
const TypingTimeout = 2 * time.Second

type Timer interface {
	Stop() bool
}

// AfterFunc совпадает по смыслу с time.AfterFunc; в тестах подменяется
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// TypingIndicator показывает, печатает ли собеседник. Каждое событие
// перезапускает таймер, по истечении таймера индикатор гаснет.
type TypingIndicator struct {
	mu        sync.Mutex
	myRole    string
	timeout   time.Duration
	afterFunc AfterFunc
	timer     Timer
	gen       uint64
	typing    bool
	onChange  func(typing bool)
}

func NewTypingIndicator(myRole string, onChange func(typing bool)) *TypingIndicator {
	return NewTypingIndicatorWithTimer(myRole, TypingTimeout, realAfterFunc, onChange)
}

func NewTypingIndicatorWithTimer(myRole string, timeout time.Duration, af AfterFunc, onChange func(typing bool)) *TypingIndicator {
	if onChange == nil {
		onChange = func(bool) {}
	}
	return &TypingIndicator{
		myRole:    myRole,
		timeout:   timeout,
		afterFunc: af,
		onChange:  onChange,
	}
}

// Observe учитывает событие переписки; собственные typing-события игнорируются
func (t *TypingIndicator) Observe(event domain.Event) {
	if event.Type != domain.EventTyping {
		return
	}
	var payload domain.TypingPayload
	if err := event.DecodePayload(&payload); err != nil {
		return
	}
	if payload.Role == t.myRole {
		return
	}
	t.Touch()
}

// Touch включает индикатор и перезапускает таймер
func (t *TypingIndicator) Touch() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = t.afterFunc(t.timeout, func() { t.expire(gen) })
	changed := !t.typing
	t.typing = true
	t.mu.Unlock()

	if changed {
		t.onChange(true)
	}
}

func (t *TypingIndicator) expire(gen uint64) {
	t.mu.Lock()
	// таймер мог сработать уже после перезапуска
	if gen != t.gen || !t.typing {
		t.mu.Unlock()
		return
	}
	t.typing = false
	t.timer = nil
	t.mu.Unlock()

	t.onChange(false)
}

func (t *TypingIndicator) IsTyping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

// Stop гасит индикатор без уведомления
func (t *TypingIndicator) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.typing = false
}
