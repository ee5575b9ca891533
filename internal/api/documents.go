package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/plate-labs/internal/document"
	"github.com/ashureev/plate-labs/internal/render"
	"github.com/go-chi/chi/v5"
)

// GetDocument streams a published plate document.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if !strings.HasPrefix(key, render.DocumentPrefix) || strings.Contains(key, "..") {
		Error(w, http.StatusNotFound, "document not found")
		return
	}

	info, rc, err := h.docs.Get(r.Context(), key)
	if errors.Is(err, document.ErrNotFound) {
		Error(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		slog.Error("Failed to read document", "key", key, "error", err)
		Error(w, http.StatusInternalServerError, "failed to read document")
		return
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			slog.Debug("Failed to close document reader", "key", key, "error", closeErr)
		}
	}()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if name := info.Metadata["filename"]; name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Debug("Document stream interrupted", "key", key, "error", err)
	}
}
