package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/payrecon/internal/normalize"
	"github.com/MrJamesThe3rd/payrecon/internal/queue"
	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

const maxBodyBytes = 1 << 20

type Normalizer interface {
	Normalize(gateway string, header http.Header, body []byte) (reconcile.Event, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, ev reconcile.Event) (*queue.Job, error)
}

// Handler receives raw gateway webhooks, authenticates and normalizes them,
// then enqueues the result. Gateways retry on any non-2xx answer, so a
// queue outage returns 503 and malformed bodies return 400.
type Handler struct {
	normalizer Normalizer
	queue      Enqueuer
}

func NewHandler(n Normalizer, q Enqueuer) *Handler {
	return &Handler{normalizer: n, queue: q}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/{gateway}", h.receive)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	gateway := chi.URLParam(r, "gateway")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	ev, err := h.normalizer.Normalize(gateway, r.Header, body)
	if err != nil {
		switch {
		case errors.Is(err, normalize.ErrUnknownGateway):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, normalize.ErrSignature):
			slog.Warn("rejected webhook signature", "gateway", gateway, "error", err)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}

		return
	}

	job, err := h.queue.Enqueue(r.Context(), ev)
	if err != nil {
		slog.Error("failed to enqueue webhook", "gateway", gateway, "event_id", ev.ExternalEventID, "error", err)
		http.Error(w, "failed to enqueue event", http.StatusServiceUnavailable)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)

	if err := json.NewEncoder(w).Encode(map[string]string{"job_id": job.ID}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
