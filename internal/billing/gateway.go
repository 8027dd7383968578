package billing

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Gateway is the payment processor capability the billing flow depends on.
// Gateway SDK clients are wrapped behind it and injected.
//
//go:generate mockgen -source=gateway.go -destination=gateway_mock.go -package=billing
type Gateway interface {
	// Name identifies the gateway on transactions and webhook events.
	Name() string
	CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*PaymentIntent, error)
	RetrieveSession(ctx context.Context, paymentIntentID string) (*Session, error)
}

type PaymentIntentParams struct {
	InvoiceID uuid.UUID
	Amount    int64
	Currency  string
}

type PaymentIntent struct {
	// ID becomes the transaction's external id and is what webhook events
	// reference as their subject.
	ID           string
	ClientSecret string
	Raw          json.RawMessage
}

type Session struct {
	ID              string `json:"id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// NoopGateway fabricates intents locally. It lets the stack run end to end
// without a processor account.
type NoopGateway struct{}

func (NoopGateway) Name() string { return "noop" }

func (NoopGateway) CreatePaymentIntent(_ context.Context, params PaymentIntentParams) (*PaymentIntent, error) {
	id := "noop_pi_" + uuid.NewString()

	raw, err := json.Marshal(map[string]any{
		"id":       id,
		"amount":   params.Amount,
		"currency": params.Currency,
		"invoice":  params.InvoiceID,
	})
	if err != nil {
		return nil, err
	}

	return &PaymentIntent{ID: id, ClientSecret: id + "_secret", Raw: raw}, nil
}

func (NoopGateway) RetrieveSession(_ context.Context, paymentIntentID string) (*Session, error) {
	return &Session{
		ID:              "noop_cs_" + paymentIntentID,
		PaymentIntentID: paymentIntentID,
		Status:          "open",
	}, nil
}
