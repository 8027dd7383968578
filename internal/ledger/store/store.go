package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

// Store is the PostgreSQL ledger. It serves the read side, the billing flow
// and the reconcile engine's units of work.
type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func New(db *sql.DB, lockTimeout time.Duration) *Store {
	return &Store{db: db, lockTimeout: lockTimeout}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const transactionColumns = `
	id, gateway, external_transaction_id, invoice_id, trainer_id, amount, currency,
	status, raw_response, created_at, updated_at
`

func scanTransaction(s scanner) (*ledger.Transaction, error) {
	var (
		t      ledger.Transaction
		status string
		raw    []byte
	)

	if err := s.Scan(
		&t.ID, &t.Gateway, &t.ExternalTransactionID, &t.InvoiceID, &t.TrainerID,
		&t.Amount, &t.Currency, &status, &raw, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	t.Status = ledger.TransactionStatus(status)
	t.RawResponse = raw

	return &t, nil
}

const invoiceColumns = `
	id, client_id, trainer_id, total_amount, currency, status, commission_rate,
	paid_transaction_id, created_at, updated_at
`

func scanInvoice(s scanner) (*ledger.Invoice, error) {
	var (
		inv    ledger.Invoice
		status string
	)

	if err := s.Scan(
		&inv.ID, &inv.ClientID, &inv.TrainerID, &inv.TotalAmount, &inv.Currency, &status,
		&inv.CommissionRate, &inv.PaidTransactionID, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	inv.Status = ledger.InvoiceStatus(status)

	return &inv, nil
}

const payoutColumns = `
	id, trainer_id, source_transaction_id, amount, currency, fee_amount, status, created_at
`

func scanPayout(s scanner) (*ledger.Payout, error) {
	var (
		p      ledger.Payout
		status string
	)

	if err := s.Scan(
		&p.ID, &p.TrainerID, &p.SourceTransactionID, &p.Amount, &p.Currency,
		&p.FeeAmount, &status, &p.CreatedAt,
	); err != nil {
		return nil, err
	}

	p.Status = ledger.PayoutStatus(status)

	return &p, nil
}

const eventColumns = `
	id, gateway, external_event_id, event_type, subject_id, status, payload,
	last_error, attempts, received_at, applied_at
`

func scanEvent(s scanner) (*ledger.WebhookEvent, error) {
	var (
		ev      ledger.WebhookEvent
		status  string
		payload []byte
	)

	if err := s.Scan(
		&ev.ID, &ev.Gateway, &ev.ExternalEventID, &ev.EventType, &ev.SubjectID, &status,
		&payload, &ev.LastError, &ev.Attempts, &ev.ReceivedAt, &ev.AppliedAt,
	); err != nil {
		return nil, err
	}

	ev.Status = ledger.EventStatus(status)
	ev.Payload = payload

	return &ev, nil
}

// jsonArg passes an empty payload as SQL NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	return []byte(raw)
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	return getInvoice(ctx, s.db, id, "")
}

func getInvoice(ctx context.Context, q querier, id uuid.UUID, suffix string) (*ledger.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1` + suffix

	inv, err := scanInvoice(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	return inv, nil
}

func (s *Store) GetTransactionByExternalID(ctx context.Context, externalID string) (*ledger.Transaction, error) {
	return getTransaction(ctx, s.db, externalID, "")
}

func getTransaction(ctx context.Context, q querier, externalID, suffix string) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_transaction_id = $1` + suffix

	t, err := scanTransaction(q.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return t, nil
}

func (s *Store) ListInvoiceTransactions(ctx context.Context, invoiceID uuid.UUID) ([]*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE invoice_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("listing invoice transactions: %w", err)
	}
	defer rows.Close()

	var txs []*ledger.Transaction

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

func (s *Store) ListPayouts(ctx context.Context, filter ledger.PayoutFilter) ([]*ledger.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.TrainerID != nil {
		query += fmt.Sprintf(" AND trainer_id = $%d", argIdx)

		args = append(args, *filter.TrainerID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, *filter.Status)
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*ledger.Payout

	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning payout: %w", err)
		}

		payouts = append(payouts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payout rows: %w", err)
	}

	return payouts, nil
}

func (s *Store) ListWebhookEvents(ctx context.Context, filter ledger.EventFilter) ([]*ledger.WebhookEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM webhook_events WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.Gateway != nil {
		query += fmt.Sprintf(" AND gateway = $%d", argIdx)

		args = append(args, *filter.Gateway)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	query += " ORDER BY received_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing webhook events: %w", err)
	}
	defer rows.Close()

	var events []*ledger.WebhookEvent

	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning webhook event: %w", err)
		}

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating webhook event rows: %w", err)
	}

	return events, nil
}
