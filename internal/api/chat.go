package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/plate-labs/internal/bot"
	"github.com/ashureev/plate-labs/internal/convlog"
	"github.com/ashureev/plate-labs/internal/identity"
	"github.com/ashureev/plate-labs/internal/render"
	"github.com/go-chi/chi/v5"
)

type chatRequest struct {
	Message string `json:"message"`
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Post("/chat", h.PostChat)
		r.Get("/researches", h.ListResearches)
		r.Get("/documents/*", h.GetDocument)
		r.Get("/archive", h.ListArchive)
		r.Get("/archive/{id}", h.GetArchive)
	})
}

// GetMe returns the caller's anonymous identity.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	JSON(w, http.StatusOK, map[string]string{
		"user_id":         userID,
		"session_id":      identity.SessionIDFromContext(r.Context()),
		"conversation_id": identity.ConversationIDFromContext(r.Context()),
	})
}

// PostChat feeds one message to the orchestrator and returns its reply.
// Inputs no rule accepts get 204 No Content.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "message too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)
	sessionID := identity.SessionIDFromContext(ctx)
	h.log.Log(convlog.Event{
		UserID:     userID,
		SessionID:  sessionID,
		Channel:    convlog.ChannelHTTP,
		Direction:  convlog.DirectionInbound,
		EventType:  convlog.EventUserMessage,
		ContentRaw: req.Message,
	})

	reply, ok := h.orch.Handle(ctx, bot.Input{
		ConversationID: identity.ConversationID(userID, sessionID),
		Text:           req.Message,
	})
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.log.Log(convlog.Event{
		UserID:     userID,
		SessionID:  sessionID,
		Channel:    convlog.ChannelHTTP,
		Direction:  convlog.DirectionOutbound,
		EventType:  convlog.EventBotReply,
		ContentRaw: render.PlainText(reply),
		Meta:       map[string]any{"command": reply.Command, "error": bot.ErrorCode(reply.Err)},
	})
	if reply.Err != nil {
		slog.Debug("Chat reply carries error", "user_id", userID, "command", reply.Command, "error", reply.Err)
	}
	JSON(w, http.StatusOK, render.NewPayload(reply))
}

// ListResearches returns every open research with its fill level.
func (h *Handler) ListResearches(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"researches": h.orch.Registry().Summaries(),
	})
}
