package reconcile

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=reconcile
type Store interface {
	// Begin opens one atomic unit of work. Row locks taken through the
	// returned Tx are held until Commit or Rollback.
	Begin(ctx context.Context) (Tx, error)
	// RecordFailure marks an event failed outside any unit of work, so the
	// audit trail survives the rollback of the failed attempt.
	RecordFailure(ctx context.Context, ev *ledger.WebhookEvent) error
}

type Tx interface {
	// AdmitEvent inserts ev as received, or re-admits a previously failed
	// row. It reports false when the event is in flight or already applied.
	AdmitEvent(ctx context.Context, ev *ledger.WebhookEvent) (bool, error)
	MarkEventApplied(ctx context.Context, id uuid.UUID) error

	TransactionForUpdate(ctx context.Context, externalID string) (*ledger.Transaction, error)
	InvoiceForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error)

	SetTransactionStatus(ctx context.Context, id uuid.UUID, status ledger.TransactionStatus, raw json.RawMessage) error
	MarkInvoicePaid(ctx context.Context, id, transactionID uuid.UUID) error
	SetInvoiceStatus(ctx context.Context, id uuid.UUID, status ledger.InvoiceStatus) error

	// InsertPayout reports false when a payout for the same source
	// transaction already exists.
	InsertPayout(ctx context.Context, p *ledger.Payout) (bool, error)
	PayoutBySource(ctx context.Context, transactionID uuid.UUID) (*ledger.Payout, error)

	Commit() error
	Rollback() error
}
