package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

type transactionResponse struct {
	ID                    uuid.UUID                `json:"id"`
	Gateway               string                   `json:"gateway"`
	ExternalTransactionID string                   `json:"external_transaction_id"`
	InvoiceID             uuid.UUID                `json:"invoice_id"`
	TrainerID             uuid.UUID                `json:"trainer_id"`
	Amount                int64                    `json:"amount"`
	Currency              string                   `json:"currency"`
	Status                ledger.TransactionStatus `json:"status"`
	RawResponse           json.RawMessage          `json:"raw_response,omitempty"`
	CreatedAt             time.Time                `json:"created_at"`
	UpdatedAt             time.Time                `json:"updated_at"`
}

func toTransactionResponse(t *ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:                    t.ID,
		Gateway:               t.Gateway,
		ExternalTransactionID: t.ExternalTransactionID,
		InvoiceID:             t.InvoiceID,
		TrainerID:             t.TrainerID,
		Amount:                t.Amount,
		Currency:              t.Currency,
		Status:                t.Status,
		RawResponse:           t.RawResponse,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}

type invoiceResponse struct {
	ID                uuid.UUID             `json:"id"`
	ClientID          uuid.UUID             `json:"client_id"`
	TrainerID         uuid.UUID             `json:"trainer_id"`
	TotalAmount       int64                 `json:"total_amount"`
	Currency          string                `json:"currency"`
	Status            ledger.InvoiceStatus  `json:"status"`
	CommissionRate    string                `json:"commission_rate"`
	PaidTransactionID *uuid.UUID            `json:"paid_transaction_id,omitempty"`
	Transactions      []transactionResponse `json:"transactions"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

func toInvoiceResponse(d *ledger.InvoiceDetail) invoiceResponse {
	inv := d.Invoice

	txs := make([]transactionResponse, len(d.Transactions))
	for i, t := range d.Transactions {
		txs[i] = toTransactionResponse(t)
	}

	return invoiceResponse{
		ID:                inv.ID,
		ClientID:          inv.ClientID,
		TrainerID:         inv.TrainerID,
		TotalAmount:       inv.TotalAmount,
		Currency:          inv.Currency,
		Status:            inv.Status,
		CommissionRate:    inv.CommissionRate.String(),
		PaidTransactionID: inv.PaidTransactionID,
		Transactions:      txs,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

type payoutResponse struct {
	ID                  uuid.UUID           `json:"id"`
	TrainerID           uuid.UUID           `json:"trainer_id"`
	SourceTransactionID *uuid.UUID          `json:"source_transaction_id,omitempty"`
	Amount              int64               `json:"amount"`
	FeeAmount           int64               `json:"fee_amount"`
	Currency            string              `json:"currency"`
	Status              ledger.PayoutStatus `json:"status"`
	CreatedAt           time.Time           `json:"created_at"`
}

func toPayoutResponseList(ps []*ledger.Payout) []payoutResponse {
	resp := make([]payoutResponse, len(ps))
	for i, p := range ps {
		resp[i] = payoutResponse{
			ID:                  p.ID,
			TrainerID:           p.TrainerID,
			SourceTransactionID: p.SourceTransactionID,
			Amount:              p.Amount,
			FeeAmount:           p.FeeAmount,
			Currency:            p.Currency,
			Status:              p.Status,
			CreatedAt:           p.CreatedAt,
		}
	}

	return resp
}

type webhookEventResponse struct {
	ID              uuid.UUID          `json:"id"`
	Gateway         string             `json:"gateway"`
	ExternalEventID string             `json:"external_event_id"`
	EventType       string             `json:"event_type"`
	SubjectID       string             `json:"subject_id"`
	Status          ledger.EventStatus `json:"status"`
	LastError       string             `json:"last_error,omitempty"`
	Attempts        int                `json:"attempts"`
	ReceivedAt      time.Time          `json:"received_at"`
	AppliedAt       *time.Time         `json:"applied_at,omitempty"`
}

func toWebhookEventResponseList(evs []*ledger.WebhookEvent) []webhookEventResponse {
	resp := make([]webhookEventResponse, len(evs))
	for i, ev := range evs {
		resp[i] = webhookEventResponse{
			ID:              ev.ID,
			Gateway:         ev.Gateway,
			ExternalEventID: ev.ExternalEventID,
			EventType:       ev.EventType,
			SubjectID:       ev.SubjectID,
			Status:          ev.Status,
			LastError:       ev.LastError,
			Attempts:        ev.Attempts,
			ReceivedAt:      ev.ReceivedAt,
			AppliedAt:       ev.AppliedAt,
		}
	}

	return resp
}
