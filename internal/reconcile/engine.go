package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

type Outcome string

const (
	// OutcomeApplied means the event moved at least one ledger record.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means the event id was already admitted.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored means the event was admitted but the current state made
	// it a no-op (already paid, late failure, refund of an unpaid transaction).
	OutcomeIgnored Outcome = "ignored"
	// OutcomeUnknownType means the event type is not one the engine handles.
	// It is acknowledged so the gateway stops redelivering it.
	OutcomeUnknownType Outcome = "unknown_type"
)

type Result struct {
	Outcome Outcome
	// Payout is set when a payment_succeeded event paid its invoice.
	Payout *ledger.Payout
}

// Engine applies normalized payment events to the transaction, invoice and
// payout ledgers. Every call runs in one unit of work: either the event is
// admitted and its whole transition commits, or nothing changes.
type Engine struct {
	store  Store
	dedup  Deduplicator
	issuer Issuer
	logger *slog.Logger
}

func NewEngine(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{store: store, logger: logger}
}

// Apply is safe to call with the same event any number of times.
func (e *Engine) Apply(ctx context.Context, ev Event) (Result, error) {
	ev = ev.Normalize()

	res, err := e.apply(ctx, ev)
	if err != nil {
		log := e.logger.With(
			"gateway", ev.Gateway,
			"event_id", ev.ExternalEventID,
			"type", ev.Type,
			"subject_id", ev.SubjectID,
			"kind", KindOf(err),
			"error", err,
		)

		if Retryable(err) {
			log.Warn("event apply failed")
			return Result{}, err
		}

		log.Error("event rejected")

		if rerr := e.RecordFailure(ctx, ev, err); rerr != nil {
			e.logger.Error("failed to record event failure", "event_id", ev.ExternalEventID, "error", rerr)
		}

		return Result{}, err
	}

	e.logger.Info("event processed",
		"gateway", ev.Gateway,
		"event_id", ev.ExternalEventID,
		"type", ev.Type,
		"outcome", res.Outcome,
	)

	return res, nil
}

// RecordFailure marks the event failed with cause as its last error. The
// queue runtime calls it once a transient failure exhausts its retries.
func (e *Engine) RecordFailure(ctx context.Context, ev Event, cause error) error {
	ev = ev.Normalize()
	if !ev.identified() {
		return nil
	}

	rec := ev.record(ledger.EventFailed)
	if cause != nil {
		rec.LastError = cause.Error()
	}

	return e.store.RecordFailure(ctx, rec)
}

func (e *Engine) apply(ctx context.Context, ev Event) (Result, error) {
	if err := ev.Validate(); err != nil {
		return Result{}, err
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return Result{}, transient("begin unit of work", err)
	}
	defer tx.Rollback()

	rec := ev.record(ledger.EventReceived)

	admission, err := e.dedup.Admit(ctx, tx, rec)
	if err != nil {
		return Result{}, err
	}

	if admission == AlreadySeen {
		return Result{Outcome: OutcomeDuplicate}, nil
	}

	var res Result

	switch {
	case ev.Type == EventPaymentSucceeded:
		res, err = e.paymentSucceeded(ctx, tx, ev)
	case ev.Type == EventPaymentFailed:
		res, err = e.paymentFailed(ctx, tx, ev)
	case ev.IsRefund():
		res, err = e.refund(ctx, tx, ev)
	default:
		e.logger.Info("unhandled event type acknowledged", "gateway", ev.Gateway, "type", ev.Type)
		res = Result{Outcome: OutcomeUnknownType}
	}

	if err != nil {
		return Result{}, err
	}

	if err := tx.MarkEventApplied(ctx, rec.ID); err != nil {
		return Result{}, transient("mark event applied", err)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, transient("commit unit of work", err)
	}

	return res, nil
}

func (e *Engine) paymentSucceeded(ctx context.Context, tx Tx, ev Event) (Result, error) {
	txn, err := e.lockTransaction(ctx, tx, ev)
	if err != nil {
		return Result{}, err
	}

	switch txn.Status {
	case ledger.TransactionPaid:
		return Result{Outcome: OutcomeIgnored}, nil
	case ledger.TransactionRefunded:
		e.logger.Warn("success for refunded transaction ignored", "transaction_id", txn.ID, "event_id", ev.ExternalEventID)
		return Result{Outcome: OutcomeIgnored}, nil
	}

	if ev.Amount != nil && *ev.Amount != txn.Amount {
		return Result{}, violation("event amount %d does not match transaction %s amount %d", *ev.Amount, txn.ID, txn.Amount)
	}

	if ev.Currency != "" && !strings.EqualFold(ev.Currency, txn.Currency) {
		return Result{}, violation("event currency %s does not match transaction %s currency %s", ev.Currency, txn.ID, txn.Currency)
	}

	inv, err := e.lockInvoice(ctx, tx, txn.InvoiceID)
	if err != nil {
		return Result{}, err
	}

	if err := tx.SetTransactionStatus(ctx, txn.ID, ledger.TransactionPaid, ev.Raw); err != nil {
		return Result{}, transient("mark transaction paid", err)
	}

	txn.Status = ledger.TransactionPaid

	if inv.IsSettled() {
		e.logger.Info("invoice already settled by another transaction",
			"invoice_id", inv.ID,
			"invoice_status", inv.Status,
			"transaction_id", txn.ID,
		)

		return Result{Outcome: OutcomeApplied}, nil
	}

	if err := tx.MarkInvoicePaid(ctx, inv.ID, txn.ID); err != nil {
		return Result{}, transient("mark invoice paid", err)
	}

	payout, err := e.issuer.Issue(ctx, tx, txn, inv)
	if err != nil {
		return Result{}, err
	}

	return Result{Outcome: OutcomeApplied, Payout: payout}, nil
}

func (e *Engine) paymentFailed(ctx context.Context, tx Tx, ev Event) (Result, error) {
	txn, err := e.lockTransaction(ctx, tx, ev)
	if err != nil {
		return Result{}, err
	}

	switch txn.Status {
	case ledger.TransactionPaid, ledger.TransactionRefunded:
		// Paid is sticky: a failure delivered after a success is out of order.
		e.logger.Warn("late failure ignored", "transaction_id", txn.ID, "status", txn.Status, "event_id", ev.ExternalEventID)
		return Result{Outcome: OutcomeIgnored}, nil
	case ledger.TransactionFailed:
		return Result{Outcome: OutcomeIgnored}, nil
	}

	inv, err := e.lockInvoice(ctx, tx, txn.InvoiceID)
	if err != nil {
		return Result{}, err
	}

	if err := tx.SetTransactionStatus(ctx, txn.ID, ledger.TransactionFailed, ev.Raw); err != nil {
		return Result{}, transient("mark transaction failed", err)
	}

	if !inv.IsSettled() && inv.Status != ledger.InvoiceFailed {
		if err := tx.SetInvoiceStatus(ctx, inv.ID, ledger.InvoiceFailed); err != nil {
			return Result{}, transient("mark invoice failed", err)
		}
	}

	return Result{Outcome: OutcomeApplied}, nil
}

func (e *Engine) refund(ctx context.Context, tx Tx, ev Event) (Result, error) {
	txn, err := e.lockTransaction(ctx, tx, ev)
	if err != nil {
		return Result{}, err
	}

	if txn.Status != ledger.TransactionPaid {
		e.logger.Info("refund for unpaid transaction ignored", "transaction_id", txn.ID, "status", txn.Status)
		return Result{Outcome: OutcomeIgnored}, nil
	}

	if ev.Currency != "" && !strings.EqualFold(ev.Currency, txn.Currency) {
		return Result{}, violation("refund currency %s does not match transaction %s currency %s", ev.Currency, txn.ID, txn.Currency)
	}

	// Gateways report the cumulative refunded amount. Only a full refund
	// moves the ledger; a partial one is acknowledged and left for the
	// delivery that completes it.
	if ev.Amount != nil {
		switch {
		case *ev.Amount > txn.Amount:
			return Result{}, violation("refund amount %d exceeds transaction %s amount %d", *ev.Amount, txn.ID, txn.Amount)
		case *ev.Amount < txn.Amount:
			e.logger.Info("partial refund ignored", "transaction_id", txn.ID, "refunded", *ev.Amount, "amount", txn.Amount)
			return Result{Outcome: OutcomeIgnored}, nil
		}
	}

	inv, err := e.lockInvoice(ctx, tx, txn.InvoiceID)
	if err != nil {
		return Result{}, err
	}

	if err := tx.SetTransactionStatus(ctx, txn.ID, ledger.TransactionRefunded, ev.Raw); err != nil {
		return Result{}, transient("mark transaction refunded", err)
	}

	// Only the transaction that paid the invoice can un-pay it.
	if inv.Status == ledger.InvoicePaid && inv.PaidTransactionID != nil && *inv.PaidTransactionID == txn.ID {
		if err := tx.SetInvoiceStatus(ctx, inv.ID, ledger.InvoiceRefunded); err != nil {
			return Result{}, transient("mark invoice refunded", err)
		}
	}

	return Result{Outcome: OutcomeApplied}, nil
}

func (e *Engine) lockTransaction(ctx context.Context, tx Tx, ev Event) (*ledger.Transaction, error) {
	txn, err := tx.TransactionForUpdate(ctx, ev.SubjectID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, violation("no transaction with external id %q", ev.SubjectID)
		}

		return nil, transient("lock transaction", err)
	}

	if !strings.EqualFold(txn.Gateway, ev.Gateway) {
		return nil, violation("transaction %s belongs to gateway %s, event came from %s", txn.ID, txn.Gateway, ev.Gateway)
	}

	return txn, nil
}

func (e *Engine) lockInvoice(ctx context.Context, tx Tx, id uuid.UUID) (*ledger.Invoice, error) {
	inv, err := tx.InvoiceForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, violation("no invoice %s", id)
		}

		return nil, transient("lock invoice", err)
	}

	return inv, nil
}
