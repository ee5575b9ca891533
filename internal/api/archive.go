package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ashureev/plate-labs/internal/domain"
	"github.com/ashureev/plate-labs/internal/plate"
	"github.com/ashureev/plate-labs/internal/render"
	"github.com/ashureev/plate-labs/internal/store"
	"github.com/go-chi/chi/v5"
)

const maxArchiveLimit = 500

type archivedPlateResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	ClosedBy    string      `json:"closed_by,omitempty"`
	FilledWells int         `json:"filled_wells"`
	CreatedAt   time.Time   `json:"created_at"`
	ClosedAt    time.Time   `json:"closed_at"`
	Table       plate.Table `json:"table"`
	Text        string      `json:"text,omitempty"`
}

func newArchivedPlateResponse(p *domain.ArchivedPlate, withText bool) archivedPlateResponse {
	t := p.Table()
	resp := archivedPlateResponse{
		ID:          p.ID,
		Name:        p.Name,
		ClosedBy:    p.ClosedBy,
		FilledWells: p.FilledWells,
		CreatedAt:   p.CreatedAt,
		ClosedAt:    p.ClosedAt,
		Table:       t,
	}
	if withText {
		resp.Text = render.Text(t)
	}
	return resp
}

// ListArchive returns recently closed plates, newest first.
func (h *Handler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		Error(w, http.StatusNotFound, "archive is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxArchiveLimit {
			Error(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	plates, err := h.archive.ListArchivedPlates(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list archived plates", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list archive")
		return
	}

	out := make([]archivedPlateResponse, 0, len(plates))
	for _, p := range plates {
		out = append(out, newArchivedPlateResponse(p, false))
	}
	JSON(w, http.StatusOK, map[string]interface{}{"plates": out})
}

// GetArchive returns one archived plate.
func (h *Handler) GetArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		Error(w, http.StatusNotFound, "archive is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	p, err := h.archive.GetArchivedPlate(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "archived plate not found")
		return
	}
	if err != nil {
		slog.Error("Failed to get archived plate", "id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to get archived plate")
		return
	}
	JSON(w, http.StatusOK, newArchivedPlateResponse(p, true))
}
