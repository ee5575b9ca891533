package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/plate-labs/internal/bot"
	"github.com/ashureev/plate-labs/internal/identity"
	"github.com/coder/websocket"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newChatServer(t *testing.T, isDev bool) (*httptest.Server, *SessionManager, *bot.Orchestrator) {
	t.Helper()
	orch := bot.New(nil, nil, bot.Options{})
	sm := NewSessionManager()
	h := NewWebSocketHandler(orch, sm, nil, "https://plates.example", isDev)

	srv := httptest.NewServer(identity.Middleware(true)(h))
	t.Cleanup(srv.Close)
	return srv, sm, orch
}

func dial(t *testing.T, srv *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?session_id=" + session
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, frame any) outbound {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var data []byte
	switch v := frame.(type) {
	case string:
		data = []byte(v)
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, resp, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out outbound
	if err := json.Unmarshal(resp, &out); err != nil {
		t.Fatalf("unmarshal %q: %v", resp, err)
	}
	return out
}

func TestWebSocketConversation(t *testing.T) {
	srv, _, orch := newChatServer(t, true)
	conn := dial(t, srv, "tab-1")

	if out := roundTrip(t, conn, inbound{Type: "ping"}); out.Type != "pong" {
		t.Fatalf("expected pong, got %+v", out)
	}

	out := roundTrip(t, conn, inbound{Type: "message", Content: "/new_research"})
	if out.Type != "reply" || out.Reply == nil || out.Reply.Command != bot.CommandNewResearch {
		t.Fatalf("unexpected reply %+v", out)
	}

	// Raw text frames are treated as messages.
	out = roundTrip(t, conn, "VersaPlex")
	if out.Reply == nil || out.Reply.Error != "" {
		t.Fatalf("unexpected create reply %+v", out)
	}

	out = roundTrip(t, conn, inbound{Type: "message", Content: "VersaPlex 16654 3 1,5,6"})
	if out.Reply == nil || out.Reply.Error != "" {
		t.Fatalf("unexpected placement reply %+v", out)
	}

	out = roundTrip(t, conn, inbound{Type: "message", Content: "/show_researches"})
	if out.Reply == nil || len(out.Reply.Plates) != 1 || !strings.Contains(out.Reply.Plates[0].Text, "16654-6") {
		t.Fatalf("unexpected show reply %+v", out)
	}

	if orch.Registry().Len() != 1 {
		t.Fatalf("expected one research, got %d", orch.Registry().Len())
	}
}

func TestWebSocketIgnoredInputSendsNothing(t *testing.T) {
	srv, _, _ := newChatServer(t, true)
	conn := dial(t, srv, "tab-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"message","content":"hello"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	// The next frame must answer the ping, not the ignored message.
	if out := roundTrip(t, conn, inbound{Type: "ping"}); out.Type != "pong" {
		t.Fatalf("expected pong, got %+v", out)
	}
}

func TestWebSocketUnknownType(t *testing.T) {
	srv, _, _ := newChatServer(t, true)
	conn := dial(t, srv, "tab-1")

	out := roundTrip(t, conn, inbound{Type: "resize"})
	if out.Type != "error" || out.Error != "unknown_message_type" {
		t.Fatalf("unexpected frame %+v", out)
	}
}

func TestWebSocketRegistersSession(t *testing.T) {
	srv, sm, _ := newChatServer(t, true)
	conn := dial(t, srv, "tab-1")
	roundTrip(t, conn, inbound{Type: "ping"})

	if sm.Len() != 1 {
		t.Fatalf("expected one live session, got %d", sm.Len())
	}

	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	deadline := time.Now().Add(2 * time.Second)
	for sm.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sm.Len() != 0 {
		t.Fatal("session should be unregistered after close")
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewWebSocketHandler(nil, NewSessionManager(), nil, "https://plates.example", false)

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://plates.example", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := h.checkOrigin(req); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
