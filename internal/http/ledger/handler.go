package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

// Handler serves read-only views of the persisted ledgers.
type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/invoices/{id}", h.getInvoice)
	r.Get("/transactions/{externalID}", h.getTransaction)
	r.Get("/payouts", h.listPayouts)
	r.Get("/webhook-events", h.listWebhookEvents)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	detail, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}

		slog.Error("failed to get invoice", "invoice_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, toInvoiceResponse(detail))
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")

	t, err := h.svc.GetTransaction(r.Context(), externalID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}

		slog.Error("failed to get transaction", "external_id", externalID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, toTransactionResponse(t))
}

func (h *Handler) listPayouts(w http.ResponseWriter, r *http.Request) {
	filter := ledger.PayoutFilter{}

	if s := r.URL.Query().Get("trainer_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid trainer_id", http.StatusBadRequest)
			return
		}

		filter.TrainerID = &id
	}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(ledger.PayoutStatus(s))
	}

	payouts, err := h.svc.ListPayouts(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list payouts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, toPayoutResponseList(payouts))
}

func (h *Handler) listWebhookEvents(w http.ResponseWriter, r *http.Request) {
	filter := ledger.EventFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(ledger.EventStatus(s))
	}

	if s := r.URL.Query().Get("gateway"); s != "" {
		filter.Gateway = new(s)
	}

	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		filter.Limit = n
	}

	events, err := h.svc.ListWebhookEvents(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list webhook events", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, toWebhookEventResponseList(events))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
