package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/payrecon/internal/queue"
)

type Store interface {
	DeadLetters(ctx context.Context, limit int) ([]*queue.Job, error)
	Replay(ctx context.Context, id string) (*queue.Job, error)
	Stats(ctx context.Context) (queue.Stats, error)
}

// Handler lets operators inspect dead-lettered events and send them back
// through the queue once the underlying data is fixed.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/stats", h.stats)
	r.Post("/{id}/replay", h.replay)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit := 100

	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		limit = n
	}

	jobs, err := h.store.DeadLetters(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list dead letters", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		slog.Error("failed to read queue stats", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) replay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.store.Replay(r.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			http.Error(w, "dead letter not found", http.StatusNotFound)
			return
		}

		slog.Error("failed to replay dead letter", "job_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
