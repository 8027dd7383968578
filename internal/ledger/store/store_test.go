package store_test

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/payrecon/internal/database"
	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
	"github.com/MrJamesThe3rd/payrecon/internal/ledger/store"
	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

// openTestDB connects to TEST_DATABASE_URL (postgres://...), migrates it and
// empties every ledger table.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()

	require.NoError(t, database.MigrateUp("pgx5"+strings.TrimPrefix(url, "postgres")))

	db, err := database.New(ctx, url, database.DefaultPool)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, `TRUNCATE webhook_events, payouts, transactions, invoices`)
	require.NoError(t, err)

	return db
}

func seedInvoice(t *testing.T, s *store.Store, externalIDs ...string) (*ledger.Invoice, []*ledger.Transaction) {
	t.Helper()

	ctx := context.Background()

	inv := &ledger.Invoice{
		ClientID:       uuid.New(),
		TrainerID:      uuid.New(),
		TotalAmount:    10000,
		Currency:       "USD",
		Status:         ledger.InvoicePending,
		CommissionRate: decimal.RequireFromString("0.10"),
	}
	require.NoError(t, s.CreateInvoice(ctx, inv))

	var txns []*ledger.Transaction

	for _, ext := range externalIDs {
		txn := &ledger.Transaction{
			Gateway:               "stripe",
			ExternalTransactionID: ext,
			InvoiceID:             inv.ID,
			TrainerID:             inv.TrainerID,
			Amount:                10000,
			Currency:              "USD",
			Status:                ledger.TransactionPending,
		}
		require.NoError(t, s.CreateTransaction(ctx, txn))

		txns = append(txns, txn)
	}

	return inv, txns
}

func success(eventID, subject string) reconcile.Event {
	return reconcile.Event{
		Gateway:         "stripe",
		ExternalEventID: eventID,
		Type:            reconcile.EventPaymentSucceeded,
		SubjectID:       subject,
		Amount:          new(int64(10000)),
		Currency:        "USD",
		Raw:             []byte(`{"id":"` + eventID + `"}`),
	}
}

func TestStore_PaymentSucceeded(t *testing.T) {
	db := openTestDB(t)
	s := store.New(db, 0)
	ctx := context.Background()

	inv, txns := seedInvoice(t, s, "pi_1")
	engine := reconcile.NewEngine(s, nil)

	for range 3 {
		_, err := engine.Apply(ctx, success("evt_1", "pi_1"))
		require.NoError(t, err)
	}

	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.InvoicePaid, got.Status)
	require.NotNil(t, got.PaidTransactionID)
	assert.Equal(t, txns[0].ID, *got.PaidTransactionID)
	assert.True(t, decimal.RequireFromString("0.1").Equal(got.CommissionRate))

	payouts, err := s.ListPayouts(ctx, ledger.PayoutFilter{TrainerID: &inv.TrainerID})
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, int64(1000), payouts[0].FeeAmount)
	assert.Equal(t, int64(9000), payouts[0].Amount)

	events, err := s.ListWebhookEvents(ctx, ledger.EventFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ledger.EventApplied, events[0].Status)
	assert.Equal(t, 1, events[0].Attempts)
	assert.NotNil(t, events[0].AppliedAt)
}

func TestStore_ConcurrentDeliveries(t *testing.T) {
	db := openTestDB(t)
	s := store.New(db, 0)
	ctx := context.Background()

	inv, _ := seedInvoice(t, s, "pi_1", "pi_2")
	engine := reconcile.NewEngine(s, nil)

	var wg sync.WaitGroup

	errs := make(chan error, 16)

	for i := range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ev := success("evt_1", "pi_1")
			if i%2 == 1 {
				ev = success("evt_2", "pi_2")
			}

			if _, err := engine.Apply(ctx, ev); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		// Lock contention is the only acceptable failure and must be retryable.
		assert.True(t, reconcile.Retryable(err), err)
	}

	payouts, err := s.ListPayouts(ctx, ledger.PayoutFilter{TrainerID: &inv.TrainerID})
	require.NoError(t, err)
	assert.Len(t, payouts, 1)

	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.InvoicePaid, got.Status)
}

func TestStore_RejectedEventIsRecordedAndReplayable(t *testing.T) {
	db := openTestDB(t)
	s := store.New(db, 0)
	ctx := context.Background()

	engine := reconcile.NewEngine(s, nil)

	_, err := engine.Apply(ctx, success("evt_1", "pi_late"))
	require.ErrorIs(t, err, reconcile.ErrConsistencyViolation)

	failed := ledger.EventFailed
	events, err := s.ListWebhookEvents(ctx, ledger.EventFilter{Status: &failed, Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].LastError, "pi_late")
	assert.Equal(t, 1, events[0].Attempts)

	// The transaction shows up later, the operator replays the event.
	inv := &ledger.Invoice{
		ClientID:       uuid.New(),
		TrainerID:      uuid.New(),
		TotalAmount:    10000,
		Currency:       "USD",
		Status:         ledger.InvoicePending,
		CommissionRate: decimal.RequireFromString("0.10"),
	}
	require.NoError(t, s.CreateInvoice(ctx, inv))
	require.NoError(t, s.CreateTransaction(ctx, &ledger.Transaction{
		Gateway:               "stripe",
		ExternalTransactionID: "pi_late",
		InvoiceID:             inv.ID,
		TrainerID:             inv.TrainerID,
		Amount:                10000,
		Currency:              "USD",
		Status:                ledger.TransactionPending,
	}))

	res, err := engine.Apply(ctx, success("evt_1", "pi_late"))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeApplied, res.Outcome)

	events, err = s.ListWebhookEvents(ctx, ledger.EventFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ledger.EventApplied, events[0].Status)
	assert.Equal(t, 2, events[0].Attempts)
	assert.Empty(t, events[0].LastError)
}

func TestStore_NotFound(t *testing.T) {
	db := openTestDB(t)
	s := store.New(db, 0)
	ctx := context.Background()

	_, err := s.GetInvoice(ctx, uuid.New())
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = s.GetTransactionByExternalID(ctx, "pi_missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_CreateInvoice_ReturnsStoredRate(t *testing.T) {
	db := openTestDB(t)
	s := store.New(db, 0)
	ctx := context.Background()

	inv := &ledger.Invoice{
		ClientID:       uuid.New(),
		TrainerID:      uuid.New(),
		TotalAmount:    10000,
		Currency:       "USD",
		Status:         ledger.InvoicePending,
		CommissionRate: decimal.RequireFromString("0.123456"),
	}
	require.NoError(t, s.CreateInvoice(ctx, inv))

	want := decimal.RequireFromString("0.12346")
	assert.True(t, want.Equal(inv.CommissionRate), "got %s", inv.CommissionRate)

	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.CommissionRate.Equal(inv.CommissionRate))
}

func TestStore_OversizedValueIsPermanent(t *testing.T) {
	db := openTestDB(t)
	s := store.New(db, 0)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.AdmitEvent(ctx, &ledger.WebhookEvent{
		Gateway:         strings.Repeat("g", 40),
		ExternalEventID: "evt_1",
		EventType:       string(reconcile.EventPaymentSucceeded),
		SubjectID:       "pi_1",
		Status:          ledger.EventReceived,
	})
	require.ErrorIs(t, err, reconcile.ErrPermanent)
	assert.False(t, reconcile.Retryable(err))
}
