package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/payrecon/internal/billing"
	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

var settings = billing.Settings{
	CommissionRate:  decimal.RequireFromString("0.10"),
	DefaultCurrency: "USD",
}

func TestService_CreateInvoice(t *testing.T) {
	clientID, trainerID := uuid.New(), uuid.New()

	type testCase struct {
		name         string
		params       billing.CreateInvoiceParams
		setupMock    func(m *billing.MockRepository)
		wantCurrency string
		wantErr      error
	}

	tests := []testCase{
		{
			name:   "FreezesRateAndDefaultCurrency",
			params: billing.CreateInvoiceParams{ClientID: clientID, TrainerID: trainerID, TotalAmount: 10000},
			setupMock: func(m *billing.MockRepository) {
				m.EXPECT().
					CreateInvoice(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, inv *ledger.Invoice) error {
						inv.ID = uuid.New()
						return nil
					})
			},
			wantCurrency: "USD",
		},
		{
			name:   "ExplicitCurrency",
			params: billing.CreateInvoiceParams{ClientID: clientID, TrainerID: trainerID, TotalAmount: 500, Currency: "eur"},
			setupMock: func(m *billing.MockRepository) {
				m.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantCurrency: "EUR",
		},
		{
			name:    "MissingTrainer",
			params:  billing.CreateInvoiceParams{ClientID: clientID, TotalAmount: 500},
			wantErr: billing.ErrInvalidInput,
		},
		{
			name:    "ZeroAmount",
			params:  billing.CreateInvoiceParams{ClientID: clientID, TrainerID: trainerID},
			wantErr: billing.ErrInvalidInput,
		},
		{
			name:    "BadCurrency",
			params:  billing.CreateInvoiceParams{ClientID: clientID, TrainerID: trainerID, TotalAmount: 500, Currency: "DOLLARS"},
			wantErr: billing.ErrInvalidInput,
		},
		{
			name:   "RepoError",
			params: billing.CreateInvoiceParams{ClientID: clientID, TrainerID: trainerID, TotalAmount: 500},
			setupMock: func(m *billing.MockRepository) {
				m.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := billing.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := billing.NewService(repo, billing.NewMockGateway(ctrl), settings)
			got, err := svc.CreateInvoice(context.Background(), tt.params)

			if tt.wantErr != nil {
				require.Error(t, err)

				if errors.Is(tt.wantErr, billing.ErrInvalidInput) {
					assert.ErrorIs(t, err, billing.ErrInvalidInput)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, ledger.InvoicePending, got.Status)
			assert.Equal(t, tt.wantCurrency, got.Currency)
			assert.True(t, settings.CommissionRate.Equal(got.CommissionRate))
		})
	}
}

func TestService_OpenPayment(t *testing.T) {
	invoiceID, trainerID := uuid.New(), uuid.New()

	invoice := func(status ledger.InvoiceStatus) *ledger.Invoice {
		return &ledger.Invoice{
			ID:             invoiceID,
			TrainerID:      trainerID,
			TotalAmount:    10000,
			Currency:       "USD",
			Status:         status,
			CommissionRate: settings.CommissionRate,
		}
	}

	type testCase struct {
		name      string
		setupMock func(repo *billing.MockRepository, gw *billing.MockGateway)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "PendingInvoice",
			setupMock: func(repo *billing.MockRepository, gw *billing.MockGateway) {
				repo.EXPECT().GetInvoice(gomock.Any(), invoiceID).Return(invoice(ledger.InvoicePending), nil)
				gw.EXPECT().
					CreatePaymentIntent(gomock.Any(), billing.PaymentIntentParams{InvoiceID: invoiceID, Amount: 10000, Currency: "USD"}).
					Return(&billing.PaymentIntent{ID: "pi_1", ClientSecret: "secret", Raw: json.RawMessage(`{"id":"pi_1"}`)}, nil)
				gw.EXPECT().Name().Return("stripe")
				repo.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, txn *ledger.Transaction) error {
						assert.Equal(t, "stripe", txn.Gateway)
						assert.Equal(t, "pi_1", txn.ExternalTransactionID)
						assert.Equal(t, trainerID, txn.TrainerID)
						assert.Equal(t, int64(10000), txn.Amount)
						assert.Equal(t, ledger.TransactionPending, txn.Status)

						txn.ID = uuid.New()

						return nil
					})
			},
		},
		{
			name: "FailedInvoiceAcceptsNewAttempt",
			setupMock: func(repo *billing.MockRepository, gw *billing.MockGateway) {
				repo.EXPECT().GetInvoice(gomock.Any(), invoiceID).Return(invoice(ledger.InvoiceFailed), nil)
				gw.EXPECT().CreatePaymentIntent(gomock.Any(), gomock.Any()).Return(&billing.PaymentIntent{ID: "pi_2"}, nil)
				gw.EXPECT().Name().Return("stripe")
				repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "PaidInvoice",
			setupMock: func(repo *billing.MockRepository, _ *billing.MockGateway) {
				repo.EXPECT().GetInvoice(gomock.Any(), invoiceID).Return(invoice(ledger.InvoicePaid), nil)
			},
			wantErr: billing.ErrInvoiceNotPayable,
		},
		{
			name: "DraftInvoice",
			setupMock: func(repo *billing.MockRepository, _ *billing.MockGateway) {
				repo.EXPECT().GetInvoice(gomock.Any(), invoiceID).Return(invoice(ledger.InvoiceDraft), nil)
			},
			wantErr: billing.ErrInvoiceNotPayable,
		},
		{
			name: "UnknownInvoice",
			setupMock: func(repo *billing.MockRepository, _ *billing.MockGateway) {
				repo.EXPECT().GetInvoice(gomock.Any(), invoiceID).Return(nil, ledger.ErrNotFound)
			},
			wantErr: ledger.ErrNotFound,
		},
		{
			name: "GatewayError",
			setupMock: func(repo *billing.MockRepository, gw *billing.MockGateway) {
				repo.EXPECT().GetInvoice(gomock.Any(), invoiceID).Return(invoice(ledger.InvoicePending), nil)
				gw.EXPECT().CreatePaymentIntent(gomock.Any(), gomock.Any()).Return(nil, errGateway)
			},
			wantErr: errGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := billing.NewMockRepository(ctrl)
			gw := billing.NewMockGateway(ctrl)
			tt.setupMock(repo, gw)

			got, err := billing.NewService(repo, gw, settings).OpenPayment(context.Background(), invoiceID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, got.Transaction)
		})
	}
}

var errGateway = errors.New("gateway unavailable")

func TestService_Session(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := billing.NewMockRepository(ctrl)
	gw := billing.NewMockGateway(ctrl)

	repo.EXPECT().GetTransactionByExternalID(gomock.Any(), "pi_1").Return(&ledger.Transaction{ExternalTransactionID: "pi_1"}, nil)
	gw.EXPECT().RetrieveSession(gomock.Any(), "pi_1").Return(&billing.Session{ID: "cs_1", PaymentIntentID: "pi_1", Status: "complete"}, nil)

	got, err := billing.NewService(repo, gw, settings).Session(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "complete", got.Status)
}

func TestNoopGateway(t *testing.T) {
	gw := billing.NoopGateway{}

	intent, err := gw.CreatePaymentIntent(context.Background(), billing.PaymentIntentParams{InvoiceID: uuid.New(), Amount: 100, Currency: "USD"})
	require.NoError(t, err)
	assert.Contains(t, intent.ID, "noop_pi_")
	assert.True(t, json.Valid(intent.Raw))

	sess, err := gw.RetrieveSession(context.Background(), intent.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.ID, sess.PaymentIntentID)
}
