package normalize_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/payrecon/internal/normalize"
	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

func TestService_Normalize(t *testing.T) {
	svc := normalize.NewService(normalize.Secrets{})

	type testCase struct {
		name    string
		gateway string
		body    string
		wantErr error
	}

	tests := []testCase{
		{
			name:    "Stripe",
			gateway: "Stripe",
			body:    `{"id":" evt_1 ","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":100,"currency":"usd"}}}`,
		},
		{
			name:    "UnknownGateway",
			gateway: "paypal",
			body:    `{}`,
			wantErr: normalize.ErrUnknownGateway,
		},
		{
			name:    "MissingSubjectIsPermanent",
			gateway: "stripe",
			body:    `{"id":"evt_1","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`,
			wantErr: reconcile.ErrPermanent,
		},
		{
			name:    "BadCurrencyIsPermanent",
			gateway: "stripe",
			body:    `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","currency":"zzzz"}}}`,
			wantErr: reconcile.ErrPermanent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := svc.Normalize(tt.gateway, http.Header{}, []byte(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "evt_1", ev.ExternalEventID)
			assert.Equal(t, "USD", ev.Currency)
		})
	}
}
