// Package chat serves the conversation over WebSocket connections.
package chat

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Conn is the part of a WebSocket connection the manager needs.
type Conn interface {
	Close(code websocket.StatusCode, reason string) error
}

// SessionManager tracks the live connection of every conversation. A second
// connection for the same conversation replaces the first, which keeps one
// reader per conversation state.
type SessionManager struct {
	mu    sync.Mutex
	conns map[string]Conn
}

// NewSessionManager creates an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{conns: make(map[string]Conn)}
}

// GetActive returns the live connection of a conversation, or nil.
func (m *SessionManager) GetActive(conversationID string) Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conns[conversationID]
}

// Register makes conn the live connection of a conversation.
func (m *SessionManager) Register(conversationID string, conn Conn) {
	m.mu.Lock()
	prev := m.conns[conversationID]
	m.conns[conversationID] = conn
	m.mu.Unlock()

	if prev != nil && prev != conn {
		if err := prev.Close(websocket.StatusPolicyViolation, "replaced by a newer connection"); err != nil {
			slog.Debug("Failed to close replaced connection", "conversation_id", conversationID, "error", err)
		}
	}
	slog.Info("Chat connection registered", "conversation_id", conversationID, "replaced", prev != nil && prev != conn)
}

// Unregister drops conn unless a newer connection already replaced it.
func (m *SessionManager) Unregister(conversationID string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conns[conversationID] == conn {
		delete(m.conns, conversationID)
		slog.Info("Chat connection unregistered", "conversation_id", conversationID)
	}
}

// Len returns the number of live connections.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// CloseAll closes every live connection with StatusGoingAway.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]Conn)
	m.mu.Unlock()

	for id, conn := range conns {
		if err := conn.Close(websocket.StatusGoingAway, "server shutting down"); err != nil {
			slog.Debug("Failed to close connection", "conversation_id", id, "error", err)
		}
	}
	slog.Info("Chat connections closed", "count", len(conns))
}
