package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/plate-labs/internal/bot"
	"github.com/ashureev/plate-labs/internal/convlog"
	"github.com/ashureev/plate-labs/internal/identity"
	"github.com/ashureev/plate-labs/internal/render"
	"github.com/coder/websocket"
)

const (
	writeTimeout     = 10 * time.Second
	defaultReadLimit = 64 << 10
)

// WebSocketHandler serves /ws/chat.
type WebSocketHandler struct {
	orch          *bot.Orchestrator
	sm            *SessionManager
	log           convlog.Logger
	allowedOrigin string
	isDev         bool
	readLimit     int64
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(orch *bot.Orchestrator, sm *SessionManager, log convlog.Logger, allowedOrigin string, isDev bool) *WebSocketHandler {
	if log == nil {
		log = convlog.Noop()
	}
	return &WebSocketHandler{
		orch:          orch,
		sm:            sm,
		log:           log,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		readLimit:     defaultReadLimit,
	}
}

// SetReadLimit caps the size of one inbound frame.
func (h *WebSocketHandler) SetReadLimit(n int64) {
	if n > 0 {
		h.readLimit = n
	}
}

// inbound is a client frame. Frames that are not JSON are treated as a
// message with the raw text as content.
type inbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// outbound is a server frame.
type outbound struct {
	Type  string          `json:"type"`
	Reply *render.Payload `json:"reply,omitempty"`
	Error string          `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()
	ws.SetReadLimit(h.readLimit)

	conversationID := identity.ConversationID(userID, sessionID)
	h.sm.Register(conversationID, ws)
	defer h.sm.Unregister(conversationID, ws)

	h.readLoop(r.Context(), ws, userID, sessionID)
	slog.Info("Chat session ended", "user_id", userID, "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, userID, sessionID string) {
	conversationID := identity.ConversationID(userID, sessionID)
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			msg = inbound{Type: "message", Content: string(data)}
		}

		switch msg.Type {
		case "message":
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			h.handleMessage(ctx, ws, conversationID, userID, sessionID, msg.Content)
		case "ping":
			if err := h.writeJSON(ctx, ws, outbound{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		default:
			if err := h.writeJSON(ctx, ws, outbound{Type: "error", Error: "unknown_message_type"}); err != nil {
				slog.Debug("Failed to send error frame", "error", err)
			}
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, ws *websocket.Conn, conversationID, userID, sessionID, text string) {
	h.log.Log(convlog.Event{
		UserID:     userID,
		SessionID:  sessionID,
		Channel:    convlog.ChannelWebSocket,
		Direction:  convlog.DirectionInbound,
		EventType:  convlog.EventUserMessage,
		ContentRaw: text,
	})

	reply, ok := h.orch.Handle(ctx, bot.Input{ConversationID: conversationID, Text: text})
	if !ok {
		return
	}

	h.log.Log(convlog.Event{
		UserID:     userID,
		SessionID:  sessionID,
		Channel:    convlog.ChannelWebSocket,
		Direction:  convlog.DirectionOutbound,
		EventType:  convlog.EventBotReply,
		ContentRaw: render.PlainText(reply),
		Meta:       map[string]any{"command": reply.Command, "error": bot.ErrorCode(reply.Err)},
	})

	payload := render.NewPayload(reply)
	if err := h.writeJSON(ctx, ws, outbound{Type: "reply", Reply: &payload}); err != nil {
		slog.Debug("Failed to send reply", "error", err, "user_id", userID)
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
