// Package api provides HTTP handlers for the plate-labs API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/plate-labs/internal/bot"
	"github.com/ashureev/plate-labs/internal/convlog"
	"github.com/ashureev/plate-labs/internal/document"
	"github.com/ashureev/plate-labs/internal/store"
)

const defaultMaxBodySize = 64 << 10

// Handler provides the chat, research, document and archive endpoints.
type Handler struct {
	orch        *bot.Orchestrator
	docs        document.Store
	archive     store.Repository
	log         convlog.Logger
	maxBodySize int64
}

// Options configures optional Handler dependencies.
type Options struct {
	// Archive may be nil when the closed plate archive is disabled.
	Archive         store.Repository
	ConversationLog convlog.Logger
	MaxBodySize     int64
}

// NewHandler creates a new Handler.
func NewHandler(orch *bot.Orchestrator, docs document.Store, opts Options) *Handler {
	h := &Handler{
		orch:        orch,
		docs:        docs,
		archive:     opts.Archive,
		log:         opts.ConversationLog,
		maxBodySize: opts.MaxBodySize,
	}
	if h.log == nil {
		h.log = convlog.Noop()
	}
	if h.maxBodySize <= 0 {
		h.maxBodySize = defaultMaxBodySize
	}
	return h
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
