package ledger

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// TransactionStatus represents the lifecycle state of a payment capture.
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionPaid     TransactionStatus = "paid"
	TransactionFailed   TransactionStatus = "failed"
	TransactionRefunded TransactionStatus = "refunded"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft    InvoiceStatus = "draft"
	InvoicePending  InvoiceStatus = "pending"
	InvoicePaid     InvoiceStatus = "paid"
	InvoiceFailed   InvoiceStatus = "failed"
	InvoiceRefunded InvoiceStatus = "refunded"
)

// PayoutStatus represents the settlement state of a payout.
type PayoutStatus string

const (
	PayoutProcessing PayoutStatus = "processing"
	PayoutPaid       PayoutStatus = "paid"
	PayoutFailed     PayoutStatus = "failed"
)

// EventStatus represents the processing state of a received gateway event.
type EventStatus string

const (
	EventReceived EventStatus = "received"
	EventApplied  EventStatus = "applied"
	EventFailed   EventStatus = "failed"
)

// Transaction is one attempted payment capture.
type Transaction struct {
	ID                    uuid.UUID
	Gateway               string
	ExternalTransactionID string
	InvoiceID             uuid.UUID
	TrainerID             uuid.UUID
	Amount                int64 // Amount in minor units
	Currency              string
	Status                TransactionStatus
	RawResponse           json.RawMessage
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Invoice is a billable amount owed by a client to a trainer.
type Invoice struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	TrainerID   uuid.UUID
	TotalAmount int64
	Currency    string
	Status      InvoiceStatus
	// CommissionRate is captured when the invoice is created and never updated.
	CommissionRate    decimal.Decimal
	PaidTransactionID *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsSettled reports whether the invoice was paid, even if later refunded.
// A failed invoice is not settled: a later transaction may still pay it.
func (i *Invoice) IsSettled() bool {
	return i.Status == InvoicePaid || i.Status == InvoiceRefunded
}

// Payout is a scheduled disbursement to a trainer derived from a paid transaction.
type Payout struct {
	ID                  uuid.UUID
	TrainerID           uuid.UUID
	SourceTransactionID *uuid.UUID
	Amount              int64 // Net amount in minor units
	Currency            string
	FeeAmount           int64
	Status              PayoutStatus
	CreatedAt           time.Time
}

// WebhookEvent records a received gateway event for deduplication and audit.
type WebhookEvent struct {
	ID              uuid.UUID
	Gateway         string
	ExternalEventID string
	EventType       string
	SubjectID       string
	Status          EventStatus
	Payload         json.RawMessage
	LastError       string
	Attempts        int
	ReceivedAt      time.Time
	AppliedAt       *time.Time
}
