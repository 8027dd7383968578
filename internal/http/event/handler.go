package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/payrecon/internal/queue"
	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

// maxBodyBytes bounds one normalized event including its raw payload.
const maxBodyBytes = 1 << 20

type Enqueuer interface {
	Enqueue(ctx context.Context, ev reconcile.Event) (*queue.Job, error)
}

// Handler accepts normalized events from gateway normalizers and hands them
// to the queue. Nothing is applied synchronously.
type Handler struct {
	queue Enqueuer
}

func NewHandler(q Enqueuer) *Handler {
	return &Handler{queue: q}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.enqueue)
}

type enqueueResponse struct {
	JobID  string       `json:"job_id"`
	Status queue.Status `json:"status"`
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	var ev reconcile.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&ev); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ev = ev.Normalize()

	if err := ev.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.queue.Enqueue(r.Context(), ev)
	if err != nil {
		slog.Error("failed to enqueue event", "event_id", ev.ExternalEventID, "error", err)
		http.Error(w, "failed to enqueue event", http.StatusServiceUnavailable)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)

	if err := json.NewEncoder(w).Encode(enqueueResponse{JobID: job.ID, Status: job.Status}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
