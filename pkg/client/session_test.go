package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"agency_messaging/internal/domain"
	"agency_messaging/internal/realtime"
)

// fakeServer - минимальный сервер переписки: отдает события из канала
// и записывает кадры клиента
type fakeServer struct {
	events chan domain.Event

	mu     sync.Mutex
	frames []string
	token  string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.token = r.URL.Query().Get("token")
	f.mu.Unlock()

	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	go func() {
		for e := range f.events {
			if ws.WriteJSON(e) != nil {
				return
			}
		}
	}()

	for {
		var frame realtime.ClientFrame
		if err := ws.ReadJSON(&frame); err != nil {
			return
		}
		f.mu.Lock()
		f.frames = append(f.frames, frame.Type)
		f.mu.Unlock()
	}
}

func (f *fakeServer) snapshot() ([]string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.frames...), f.token
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func mustEvent(t *testing.T, typ string, clientID uuid.UUID, payload any) domain.Event {
	t.Helper()
	e, err := domain.NewEvent(typ, clientID, payload)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestSession(t *testing.T) {
	fake := &fakeServer{events: make(chan domain.Event, 16)}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	defer close(fake.events)

	clientID := uuid.New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := domain.Message{ID: uuid.New(), ClientID: clientID, Body: "hi", Status: domain.MessageStatusNew, CreatedAt: base}

	var typingMu sync.Mutex
	var typingChanges []bool
	s, err := Dial(context.Background(), srv.URL, "tok", clientID, SessionOptions{
		Role:    domain.RoleClient,
		Initial: []domain.Message{first},
		OnTyping: func(typing bool) {
			typingMu.Lock()
			typingChanges = append(typingChanges, typing)
			typingMu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	if _, token := fake.snapshot(); token != "tok" {
		t.Errorf("token = %q", token)
	}

	// новое сообщение, его дубликат и обновление статуса
	reply := domain.Message{ID: uuid.New(), ClientID: clientID, Body: "hello", Status: domain.MessageStatusReplied, CreatedAt: base.Add(time.Minute)}
	fake.events <- mustEvent(t, domain.EventMessageCreated, clientID, reply)
	fake.events <- mustEvent(t, domain.EventMessageCreated, clientID, reply)
	first.Status = domain.MessageStatusReplied
	fake.events <- mustEvent(t, domain.EventMessageUpdated, clientID, first)

	waitFor(t, func() bool {
		msgs := s.Messages()
		return len(msgs) == 2 && msgs[0].Status == domain.MessageStatusReplied
	})
	if msgs := s.Messages(); msgs[1].ID != reply.ID {
		t.Errorf("order = %+v", msgs)
	}

	// присутствие
	fake.events <- mustEvent(t, domain.EventPresenceSync, clientID, domain.PresenceSyncPayload{Entries: []domain.PresenceEntry{
		{Key: "a", Role: domain.RoleClient, LastSeen: base},
		{Key: "b", Role: domain.RoleAgent, LastSeen: base},
	}})
	waitFor(t, s.OtherOnline)

	// свой typing не зажигает индикатор, чужой - зажигает
	fake.events <- mustEvent(t, domain.EventTyping, clientID, domain.TypingPayload{Role: domain.RoleClient})
	fake.events <- mustEvent(t, domain.EventTyping, clientID, domain.TypingPayload{Role: domain.RoleAgent})
	waitFor(t, s.OtherTyping)

	// статус предложения из offer.updated
	offerID := uuid.New()
	fake.events <- mustEvent(t, domain.EventOfferUpdated, clientID, domain.Offer{ID: offerID, Status: domain.OfferStatusAccepted})
	waitFor(t, func() bool {
		status, ok := s.OfferStatus(offerID)
		return ok && status == domain.OfferStatusAccepted
	})

	typingMu.Lock()
	if len(typingChanges) != 1 || !typingChanges[0] {
		t.Errorf("typing changes = %v", typingChanges)
	}
	typingMu.Unlock()
}

func TestSession_TypingIsThrottled(t *testing.T) {
	fake := &fakeServer{events: make(chan domain.Event)}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	defer close(fake.events)

	s, err := Dial(context.Background(), srv.URL, "tok", uuid.New(), SessionOptions{Role: domain.RoleAgent})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		if err := s.Typing(); err != nil {
			t.Fatalf("Typing: %v", err)
		}
	}
	waitFor(t, func() bool {
		frames, _ := fake.snapshot()
		return len(frames) >= 1
	})
	time.Sleep(50 * time.Millisecond)
	if frames, _ := fake.snapshot(); len(frames) != 1 || frames[0] != realtime.FrameTyping {
		t.Errorf("frames = %v", frames)
	}
}

func TestSession_HeartbeatAndClose(t *testing.T) {
	fake := &fakeServer{events: make(chan domain.Event)}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	defer close(fake.events)

	s, err := Dial(context.Background(), srv.URL, "tok", uuid.New(), SessionOptions{
		Role:              domain.RoleClient,
		HeartbeatInterval: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	waitFor(t, func() bool {
		frames, _ := fake.snapshot()
		return len(frames) >= 2
	})
	if frames, _ := fake.snapshot(); frames[0] != realtime.FrameHeartbeat {
		t.Errorf("frames = %v", frames)
	}

	s.Close()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session not done after Close")
	}
}
