package reconcile

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

// Issuer derives the trainer payout for a newly paid transaction.
type Issuer struct{}

// Split returns floor(amount * rate) as the platform fee and the remainder as
// the trainer's net amount. fee + net always equals amount.
func (Issuer) Split(amount int64, rate decimal.Decimal) (fee, net int64, err error) {
	if amount < 0 {
		return 0, 0, violation("transaction amount %d is negative", amount)
	}

	fee = decimal.NewFromInt(amount).Mul(rate).Floor().IntPart()
	net = amount - fee

	if fee < 0 {
		return 0, 0, violation("commission rate %s yields negative fee %d", rate, fee)
	}

	if net < 0 {
		return 0, 0, violation("commission rate %s yields negative payout %d", rate, net)
	}

	return fee, net, nil
}

// Issue creates the payout for txn using the rate frozen on inv. A second
// call for the same transaction returns the existing payout.
func (is Issuer) Issue(ctx context.Context, tx Tx, txn *ledger.Transaction, inv *ledger.Invoice) (*ledger.Payout, error) {
	if txn.TrainerID != inv.TrainerID {
		return nil, violation("transaction %s trainer %s does not match invoice %s trainer %s",
			txn.ID, txn.TrainerID, inv.ID, inv.TrainerID)
	}

	fee, net, err := is.Split(txn.Amount, inv.CommissionRate)
	if err != nil {
		return nil, err
	}

	p := &ledger.Payout{
		TrainerID:           txn.TrainerID,
		SourceTransactionID: &txn.ID,
		Amount:              net,
		Currency:            txn.Currency,
		FeeAmount:           fee,
		Status:              ledger.PayoutProcessing,
	}

	created, err := tx.InsertPayout(ctx, p)
	if err != nil {
		return nil, transient("insert payout", err)
	}

	if created {
		return p, nil
	}

	existing, err := tx.PayoutBySource(ctx, txn.ID)
	if err != nil {
		return nil, transient("load existing payout", err)
	}

	return existing, nil
}
