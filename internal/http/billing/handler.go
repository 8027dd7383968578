package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payrecon/internal/billing"
	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

type Handler struct {
	svc *billing.Service
}

func NewHandler(svc *billing.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/invoices", h.createInvoice)
	r.Post("/invoices/{id}/payments", h.openPayment)
	r.Get("/transactions/{externalID}/session", h.session)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req billing.CreateInvoiceParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv, err := h.svc.CreateInvoice(r.Context(), req)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		slog.Error("failed to create invoice", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusCreated, invoiceResponse{
		ID:             inv.ID,
		ClientID:       inv.ClientID,
		TrainerID:      inv.TrainerID,
		TotalAmount:    inv.TotalAmount,
		Currency:       inv.Currency,
		Status:         inv.Status,
		CommissionRate: inv.CommissionRate.String(),
	})
}

type invoiceResponse struct {
	ID             uuid.UUID            `json:"id"`
	ClientID       uuid.UUID            `json:"client_id"`
	TrainerID      uuid.UUID            `json:"trainer_id"`
	TotalAmount    int64                `json:"total_amount"`
	Currency       string               `json:"currency"`
	Status         ledger.InvoiceStatus `json:"status"`
	CommissionRate string               `json:"commission_rate"`
}

type paymentResponse struct {
	TransactionID         uuid.UUID `json:"transaction_id"`
	Gateway               string    `json:"gateway"`
	ExternalTransactionID string    `json:"external_transaction_id"`
	Amount                int64     `json:"amount"`
	Currency              string    `json:"currency"`
	ClientSecret          string    `json:"client_secret"`
}

func (h *Handler) openPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	p, err := h.svc.OpenPayment(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			http.Error(w, "invoice not found", http.StatusNotFound)
		case errors.Is(err, billing.ErrInvoiceNotPayable):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			slog.Error("failed to open payment", "invoice_id", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	writeJSON(w, http.StatusCreated, paymentResponse{
		TransactionID:         p.Transaction.ID,
		Gateway:               p.Transaction.Gateway,
		ExternalTransactionID: p.Transaction.ExternalTransactionID,
		Amount:                p.Transaction.Amount,
		Currency:              p.Transaction.Currency,
		ClientSecret:          p.ClientSecret,
	})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")

	sess, err := h.svc.Session(r.Context(), externalID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}

		slog.Error("failed to retrieve session", "external_id", externalID, "error", err)
		http.Error(w, "gateway error", http.StatusBadGateway)

		return
	}

	writeJSON(w, http.StatusOK, sess)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
