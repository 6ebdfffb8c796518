package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"agency_messaging/internal/domain"
	"agency_messaging/internal/realtime"
)

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

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", path, err, status)
	}
	return ws
}

func TestConversationSocket(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	topic := realtime.ConversationTopic(env.clientID)
	ws := dial(t, srv, "/ws/conversations/"+env.clientID.String()+"?token="+env.clientToken)

	waitFor(t, func() bool {
		joined, _, _, _ := env.presence.snapshot()
		return env.hub.Count(topic) == 1 && len(joined) == 1
	})
	joined, _, _, _ := env.presence.snapshot()

	// событие брокера доходит до клиента
	event, err := domain.NewEvent(domain.EventTyping, env.clientID, domain.TypingPayload{Role: domain.RoleAgent})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.broker.Publish(context.Background(), topic, event); err != nil {
		t.Fatal(err)
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.Event
	if err := ws.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Type != domain.EventTyping || got.ClientID != env.clientID {
		t.Errorf("event = %+v", got)
	}

	// кадры клиента
	ws.WriteJSON(realtime.ClientFrame{Type: realtime.FrameTyping})
	ws.WriteJSON(realtime.ClientFrame{Type: realtime.FrameHeartbeat})
	waitFor(t, func() bool {
		_, _, typing, heartbeats := env.presence.snapshot()
		return typing == 1 && heartbeats == 1
	})

	// закрытие соединения снимает присутствие и подписку
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	ws.Close()
	waitFor(t, func() bool {
		_, left, _, _ := env.presence.snapshot()
		return len(left) == 1 && left[0] == joined[0]
	})
	waitFor(t, func() bool { return env.hub.Count(topic) == 0 })
}

func TestConversationSocket_Rejections(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	tests := []struct {
		name string
		path string
		want int
	}{
		{"no token", "/ws/conversations/" + env.clientID.String(), http.StatusUnauthorized},
		{"foreign conversation", "/ws/conversations/" + env.agentID.String() + "?token=" + env.clientToken, http.StatusForbidden},
		{"inbox for client", "/ws/inbox?token=" + env.clientToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(base+tt.path, nil)
			if err == nil {
				t.Fatal("expected handshake failure")
			}
			if resp == nil || resp.StatusCode != tt.want {
				t.Errorf("resp = %v, want status %d", resp, tt.want)
			}
		})
	}
}

func TestInboxSocket(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ws := dial(t, srv, "/ws/inbox?token="+env.agentToken)
	defer ws.Close()
	waitFor(t, func() bool { return env.hub.Count(realtime.InboxTopic) == 1 })

	msg := domain.Message{ClientID: env.clientID, Body: "hello", Status: domain.MessageStatusNew}
	event, _ := domain.NewEvent(domain.EventMessageCreated, env.clientID, msg)
	env.broker.Publish(context.Background(), realtime.InboxTopic, event)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.Event
	if err := ws.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	var payload domain.Message
	if err := got.DecodePayload(&payload); err != nil || payload.Body != "hello" {
		t.Errorf("payload = %+v err = %v", payload, err)
	}
}
