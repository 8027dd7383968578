package ledger

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetTransactionByExternalID(ctx context.Context, externalID string) (*Transaction, error)
	ListInvoiceTransactions(ctx context.Context, invoiceID uuid.UUID) ([]*Transaction, error)
	ListPayouts(ctx context.Context, filter PayoutFilter) ([]*Payout, error)
	ListWebhookEvents(ctx context.Context, filter EventFilter) ([]*WebhookEvent, error)
}

// Service exposes persisted ledger records to the outer layers. It never
// mutates them; every mutation goes through the reconcile engine.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type PayoutFilter struct {
	TrainerID *uuid.UUID
	Status    *PayoutStatus
}

type EventFilter struct {
	Gateway *string
	Status  *EventStatus
	Limit   int
}

// InvoiceDetail is an invoice together with every transaction opened against it.
type InvoiceDetail struct {
	Invoice      *Invoice
	Transactions []*Transaction
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	txs, err := s.repo.ListInvoiceTransactions(ctx, id)
	if err != nil {
		return nil, err
	}

	return &InvoiceDetail{Invoice: inv, Transactions: txs}, nil
}

func (s *Service) GetTransaction(ctx context.Context, externalID string) (*Transaction, error) {
	return s.repo.GetTransactionByExternalID(ctx, externalID)
}

func (s *Service) ListPayouts(ctx context.Context, filter PayoutFilter) ([]*Payout, error) {
	return s.repo.ListPayouts(ctx, filter)
}

const defaultEventLimit = 100

func (s *Service) ListWebhookEvents(ctx context.Context, filter EventFilter) ([]*WebhookEvent, error) {
	if filter.Limit <= 0 || filter.Limit > defaultEventLimit {
		filter.Limit = defaultEventLimit
	}

	return s.repo.ListWebhookEvents(ctx, filter)
}
