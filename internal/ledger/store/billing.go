package store

import (
	"context"
	"fmt"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

// CreateInvoice inserts inv with its commission rate and reads back the rate
// as stored. No statement in this package updates commission_rate afterwards.
func (s *Store) CreateInvoice(ctx context.Context, inv *ledger.Invoice) error {
	query := `
		INSERT INTO invoices (client_id, trainer_id, total_amount, currency, status, commission_rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, commission_rate, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		inv.ClientID,
		inv.TrainerID,
		inv.TotalAmount,
		inv.Currency,
		inv.Status,
		inv.CommissionRate,
	).Scan(&inv.ID, &inv.CommissionRate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating invoice: %w", err)
	}

	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, t *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (gateway, external_transaction_id, invoice_id, trainer_id, amount, currency, status, raw_response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		t.Gateway,
		t.ExternalTransactionID,
		t.InvoiceID,
		t.TrainerID,
		t.Amount,
		t.Currency,
		t.Status,
		jsonArg(t.RawResponse),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}
