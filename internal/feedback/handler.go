package feedback

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"healthsync/internal/observability"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// ListRecent returns the newest entries, at most ?limit= (default 50).
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("list feedback failed", "error", err)
		http.Error(w, "Failed to load feedback", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"feedback": entries,
	})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/feedback", h.ListRecent)
}
