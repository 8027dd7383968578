package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvoiceNotPayable = errors.New("invoice is not payable")
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=billing
type Repository interface {
	CreateInvoice(ctx context.Context, inv *ledger.Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error)
	CreateTransaction(ctx context.Context, t *ledger.Transaction) error
	GetTransactionByExternalID(ctx context.Context, externalID string) (*ledger.Transaction, error)
}

// Settings are read once per invoice and frozen onto it.
type Settings struct {
	CommissionRate  decimal.Decimal
	DefaultCurrency string
}

type Service struct {
	repo     Repository
	gateway  Gateway
	settings Settings
}

func NewService(repo Repository, gateway Gateway, settings Settings) *Service {
	return &Service{repo: repo, gateway: gateway, settings: settings}
}

type CreateInvoiceParams struct {
	ClientID    uuid.UUID `json:"client_id"`
	TrainerID   uuid.UUID `json:"trainer_id"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency,omitempty"`
}

func (s *Service) CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*ledger.Invoice, error) {
	if params.ClientID == uuid.Nil || params.TrainerID == uuid.Nil {
		return nil, fmt.Errorf("%w: client_id and trainer_id are required", ErrInvalidInput)
	}

	if params.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: total_amount must be positive", ErrInvalidInput)
	}

	cur := strings.ToUpper(strings.TrimSpace(params.Currency))
	if cur == "" {
		cur = s.settings.DefaultCurrency
	}

	if _, err := currency.ParseISO(cur); err != nil {
		return nil, fmt.Errorf("%w: currency %q", ErrInvalidInput, cur)
	}

	inv := &ledger.Invoice{
		ClientID:       params.ClientID,
		TrainerID:      params.TrainerID,
		TotalAmount:    params.TotalAmount,
		Currency:       cur,
		Status:         ledger.InvoicePending,
		CommissionRate: s.settings.CommissionRate,
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// Payment is a pending transaction opened for an invoice, together with the
// secret the client needs to complete it with the gateway.
type Payment struct {
	Transaction  *ledger.Transaction `json:"transaction"`
	ClientSecret string              `json:"client_secret"`
}

// OpenPayment opens a new pending transaction against the invoice. Pending and
// failed invoices accept new attempts; settled and draft invoices do not.
func (s *Service) OpenPayment(ctx context.Context, invoiceID uuid.UUID) (*Payment, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if inv.Status != ledger.InvoicePending && inv.Status != ledger.InvoiceFailed {
		return nil, fmt.Errorf("%w: invoice %s is %s", ErrInvoiceNotPayable, inv.ID, inv.Status)
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, PaymentIntentParams{
		InvoiceID: inv.ID,
		Amount:    inv.TotalAmount,
		Currency:  inv.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("creating payment intent: %w", err)
	}

	txn := &ledger.Transaction{
		Gateway:               s.gateway.Name(),
		ExternalTransactionID: intent.ID,
		InvoiceID:             inv.ID,
		TrainerID:             inv.TrainerID,
		Amount:                inv.TotalAmount,
		Currency:              inv.Currency,
		Status:                ledger.TransactionPending,
		RawResponse:           intent.Raw,
	}

	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	return &Payment{Transaction: txn, ClientSecret: intent.ClientSecret}, nil
}

// Session asks the gateway for the live state of a transaction's session.
// It never changes the ledger; only webhook events do.
func (s *Service) Session(ctx context.Context, externalID string) (*Session, error) {
	txn, err := s.repo.GetTransactionByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	sess, err := s.gateway.RetrieveSession(ctx, txn.ExternalTransactionID)
	if err != nil {
		return nil, fmt.Errorf("retrieving session: %w", err)
	}

	return sess, nil
}
