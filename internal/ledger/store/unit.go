package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

// Begin opens a unit of work with lock_timeout applied for its lifetime, so a
// blocked row lock surfaces as a retryable error instead of a stalled worker.
func (s *Store) Begin(ctx context.Context) (reconcile.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("beginning unit of work", err)
	}

	if s.lockTimeout > 0 {
		setting := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
		if _, err := dbTx.ExecContext(ctx, "SELECT set_config('lock_timeout', $1, true)", setting); err != nil {
			dbTx.Rollback()
			return nil, classify("setting lock timeout", err)
		}
	}

	return &unitOfWork{tx: dbTx}, nil
}

// RecordFailure upserts the event as failed. Applied rows are left untouched.
func (s *Store) RecordFailure(ctx context.Context, ev *ledger.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (gateway, external_event_id, event_type, subject_id, status, payload, last_error, attempts, received_at)
		VALUES ($1, $2, $3, $4, 'failed', $5, $6, 1, NOW())
		ON CONFLICT (gateway, external_event_id) DO UPDATE
		SET status = 'failed',
			last_error = EXCLUDED.last_error,
			attempts = webhook_events.attempts + 1
		WHERE webhook_events.status <> 'applied'
	`

	_, err := s.db.ExecContext(ctx, query,
		ev.Gateway,
		ev.ExternalEventID,
		ev.EventType,
		ev.SubjectID,
		jsonArg(ev.Payload),
		ev.LastError,
	)
	if err != nil {
		return classify("recording event failure", err)
	}

	return nil
}

type unitOfWork struct {
	tx *sql.Tx
}

func (u *unitOfWork) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return classify("committing unit of work", err)
	}

	return nil
}

func (u *unitOfWork) Rollback() error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back unit of work: %w", err)
	}

	return nil
}

// AdmitEvent inserts the event or re-admits a failed row. A concurrent
// admission of the same key blocks on the unique index until the first unit of
// work finishes.
func (u *unitOfWork) AdmitEvent(ctx context.Context, ev *ledger.WebhookEvent) (bool, error) {
	query := `
		INSERT INTO webhook_events (gateway, external_event_id, event_type, subject_id, status, payload, attempts, received_at)
		VALUES ($1, $2, $3, $4, 'received', $5, 1, NOW())
		ON CONFLICT (gateway, external_event_id) DO UPDATE
		SET status = 'received',
			event_type = EXCLUDED.event_type,
			subject_id = EXCLUDED.subject_id,
			payload = EXCLUDED.payload,
			attempts = webhook_events.attempts + 1,
			received_at = NOW()
		WHERE webhook_events.status = 'failed'
		RETURNING id, attempts, received_at
	`

	err := u.tx.QueryRowContext(ctx, query,
		ev.Gateway,
		ev.ExternalEventID,
		ev.EventType,
		ev.SubjectID,
		jsonArg(ev.Payload),
	).Scan(&ev.ID, &ev.Attempts, &ev.ReceivedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		return false, classify("admitting event", err)
	}

	ev.Status = ledger.EventReceived

	return true, nil
}

func (u *unitOfWork) MarkEventApplied(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE webhook_events
		SET status = 'applied', applied_at = NOW(), last_error = ''
		WHERE id = $1
	`

	return u.execOne(ctx, "marking event applied", query, id)
}

func (u *unitOfWork) TransactionForUpdate(ctx context.Context, externalID string) (*ledger.Transaction, error) {
	t, err := getTransaction(ctx, u.tx, externalID, " FOR UPDATE")
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, classify("locking transaction", err)
	}

	return t, err
}

func (u *unitOfWork) InvoiceForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	inv, err := getInvoice(ctx, u.tx, id, " FOR UPDATE")
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, classify("locking invoice", err)
	}

	return inv, err
}

func (u *unitOfWork) SetTransactionStatus(ctx context.Context, id uuid.UUID, status ledger.TransactionStatus, raw json.RawMessage) error {
	query := `
		UPDATE transactions
		SET status = $1, raw_response = COALESCE($2::jsonb, raw_response), updated_at = NOW()
		WHERE id = $3
	`

	return u.execOne(ctx, "updating transaction status", query, status, jsonArg(raw), id)
}

func (u *unitOfWork) MarkInvoicePaid(ctx context.Context, id, transactionID uuid.UUID) error {
	query := `
		UPDATE invoices
		SET status = 'paid', paid_transaction_id = $1, updated_at = NOW()
		WHERE id = $2
	`

	return u.execOne(ctx, "marking invoice paid", query, transactionID, id)
}

func (u *unitOfWork) SetInvoiceStatus(ctx context.Context, id uuid.UUID, status ledger.InvoiceStatus) error {
	query := `
		UPDATE invoices
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	return u.execOne(ctx, "updating invoice status", query, status, id)
}

func (u *unitOfWork) InsertPayout(ctx context.Context, p *ledger.Payout) (bool, error) {
	query := `
		INSERT INTO payouts (trainer_id, source_transaction_id, amount, currency, fee_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (source_transaction_id) DO NOTHING
		RETURNING id, created_at
	`

	err := u.tx.QueryRowContext(ctx, query,
		p.TrainerID,
		p.SourceTransactionID,
		p.Amount,
		p.Currency,
		p.FeeAmount,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		return false, classify("inserting payout", err)
	}

	return true, nil
}

func (u *unitOfWork) PayoutBySource(ctx context.Context, transactionID uuid.UUID) (*ledger.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE source_transaction_id = $1`

	p, err := scanPayout(u.tx.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, classify("getting payout", err)
	}

	return p, nil
}

func (u *unitOfWork) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := u.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, ledger.ErrNotFound)
	}

	return nil
}
