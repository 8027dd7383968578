package reconcile_test

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

// memLedger is an in-memory Store. A unit of work holds mu from Begin until
// Commit or Rollback, which is a coarse stand-in for row locks, and works on
// a copy of the state so that Rollback discards everything.
type memLedger struct {
	mu    sync.Mutex
	state memState

	failures []*ledger.WebhookEvent
}

type memState struct {
	txns     map[string]ledger.Transaction
	invoices map[uuid.UUID]ledger.Invoice
	payouts  map[uuid.UUID]ledger.Payout
	events   map[string]ledger.WebhookEvent
}

func newMemLedger() *memLedger {
	return &memLedger{state: memState{
		txns:     map[string]ledger.Transaction{},
		invoices: map[uuid.UUID]ledger.Invoice{},
		payouts:  map[uuid.UUID]ledger.Payout{},
		events:   map[string]ledger.WebhookEvent{},
	}}
}

func (s memState) clone() memState {
	return memState{
		txns:     maps.Clone(s.txns),
		invoices: maps.Clone(s.invoices),
		payouts:  maps.Clone(s.payouts),
		events:   maps.Clone(s.events),
	}
}

func eventKey(gateway, id string) string { return gateway + "|" + id }

func (l *memLedger) addInvoice(inv ledger.Invoice) {
	l.state.invoices[inv.ID] = inv
}

func (l *memLedger) addTransaction(txn ledger.Transaction) {
	l.state.txns[txn.ExternalTransactionID] = txn
}

func (l *memLedger) transaction(externalID string) ledger.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state.txns[externalID]
}

func (l *memLedger) invoice(id uuid.UUID) ledger.Invoice {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state.invoices[id]
}

func (l *memLedger) payouts() []ledger.Payout {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ledger.Payout, 0, len(l.state.payouts))
	for _, p := range l.state.payouts {
		out = append(out, p)
	}

	return out
}

func (l *memLedger) event(gateway, id string) (ledger.WebhookEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev, ok := l.state.events[eventKey(gateway, id)]

	return ev, ok
}

// snapshot returns the committed state for equality checks.
func (l *memLedger) snapshot() memState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state.clone()
}

func (l *memLedger) Begin(_ context.Context) (reconcile.Tx, error) {
	l.mu.Lock()
	return &memTx{l: l, st: l.state.clone()}, nil
}

func (l *memLedger) RecordFailure(_ context.Context, ev *ledger.WebhookEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := eventKey(ev.Gateway, ev.ExternalEventID)
	existing, ok := l.state.events[k]

	if ok && existing.Status == ledger.EventApplied {
		return nil
	}

	rec := *ev
	rec.Status = ledger.EventFailed
	rec.Attempts = 1

	if ok {
		rec.ID = existing.ID
		rec.Attempts = existing.Attempts + 1
	} else {
		rec.ID = uuid.New()
	}
	l.state.events[k] = rec
	l.failures = append(l.failures, ev)

	return nil
}

type memTx struct {
	l    *memLedger
	st   memState
	done bool
}

func (t *memTx) AdmitEvent(_ context.Context, ev *ledger.WebhookEvent) (bool, error) {
	k := eventKey(ev.Gateway, ev.ExternalEventID)

	existing, ok := t.st.events[k]
	if ok && existing.Status != ledger.EventFailed {
		return false, nil
	}

	if ok {
		ev.ID = existing.ID
		ev.Attempts = existing.Attempts + 1
	} else {
		ev.ID = uuid.New()
		ev.Attempts = 1
	}

	ev.Status = ledger.EventReceived
	ev.ReceivedAt = time.Now()
	t.st.events[k] = *ev

	return true, nil
}

func (t *memTx) MarkEventApplied(_ context.Context, id uuid.UUID) error {
	for k, ev := range t.st.events {
		if ev.ID == id {
			now := time.Now()
			ev.Status = ledger.EventApplied
			ev.AppliedAt = &now
			ev.LastError = ""
			t.st.events[k] = ev

			return nil
		}
	}

	return fmt.Errorf("event %s: %w", id, ledger.ErrNotFound)
}

func (t *memTx) TransactionForUpdate(_ context.Context, externalID string) (*ledger.Transaction, error) {
	txn, ok := t.st.txns[externalID]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	return &txn, nil
}

func (t *memTx) InvoiceForUpdate(_ context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	inv, ok := t.st.invoices[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	return &inv, nil
}

func (t *memTx) SetTransactionStatus(_ context.Context, id uuid.UUID, status ledger.TransactionStatus, raw json.RawMessage) error {
	for k, txn := range t.st.txns {
		if txn.ID == id {
			txn.Status = status
			if raw != nil {
				txn.RawResponse = raw
			}

			t.st.txns[k] = txn

			return nil
		}
	}

	return ledger.ErrNotFound
}

func (t *memTx) MarkInvoicePaid(_ context.Context, id, transactionID uuid.UUID) error {
	inv, ok := t.st.invoices[id]
	if !ok {
		return ledger.ErrNotFound
	}

	inv.Status = ledger.InvoicePaid
	inv.PaidTransactionID = &transactionID
	t.st.invoices[id] = inv

	return nil
}

func (t *memTx) SetInvoiceStatus(_ context.Context, id uuid.UUID, status ledger.InvoiceStatus) error {
	inv, ok := t.st.invoices[id]
	if !ok {
		return ledger.ErrNotFound
	}

	inv.Status = status
	t.st.invoices[id] = inv

	return nil
}

func (t *memTx) InsertPayout(_ context.Context, p *ledger.Payout) (bool, error) {
	src := *p.SourceTransactionID
	if _, ok := t.st.payouts[src]; ok {
		return false, nil
	}

	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	t.st.payouts[src] = *p

	return true, nil
}

func (t *memTx) PayoutBySource(_ context.Context, transactionID uuid.UUID) (*ledger.Payout, error) {
	p, ok := t.st.payouts[transactionID]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	return &p, nil
}

func (t *memTx) Commit() error {
	if t.done {
		return fmt.Errorf("commit: transaction already closed")
	}

	t.l.state = t.st
	t.done = true
	t.l.mu.Unlock()

	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}

	t.done = true
	t.l.mu.Unlock()

	return nil
}
