package webhook_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/payrecon/internal/http/webhook"
	"github.com/MrJamesThe3rd/payrecon/internal/normalize"
	"github.com/MrJamesThe3rd/payrecon/internal/normalize/stripe"
	"github.com/MrJamesThe3rd/payrecon/internal/queue"
	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

const secret = "whsec_test"

type fakeQueue struct {
	enqueued []reconcile.Event
	err      error
}

func (f *fakeQueue) Enqueue(_ context.Context, ev reconcile.Event) (*queue.Job, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.enqueued = append(f.enqueued, ev)

	return &queue.Job{ID: "job-1", Event: ev}, nil
}

func TestHandler_Receive(t *testing.T) {
	const body = `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount_received":500,"currency":"usd"}}}`

	now := time.Now()
	validSig := "t=" + strconv.FormatInt(now.Unix(), 10) + ",v1=" + stripe.Sign(secret, now.Unix(), []byte(body))

	type testCase struct {
		name       string
		gateway    string
		body       string
		signature  string
		queueErr   error
		wantStatus int
		wantQueued int
	}

	tests := []testCase{
		{name: "Accepted", gateway: "stripe", body: body, signature: validSig, wantStatus: http.StatusAccepted, wantQueued: 1},
		{name: "BadSignature", gateway: "stripe", body: body, signature: "t=1,v1=00", wantStatus: http.StatusUnauthorized},
		{name: "UnknownGateway", gateway: "adyen", body: body, wantStatus: http.StatusNotFound},
		{name: "QueueDown", gateway: "stripe", body: body, signature: validSig, queueErr: errors.New("redis down"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{err: tt.queueErr}

			r := chi.NewRouter()
			r.Route("/webhooks", webhook.NewHandler(normalize.NewService(normalize.Secrets{Stripe: secret}), q).Routes)

			req := httptest.NewRequest(http.MethodPost, "/webhooks/"+tt.gateway, strings.NewReader(tt.body))
			if tt.signature != "" {
				req.Header.Set(stripe.SignatureHeader, tt.signature)
			}

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			require.Len(t, q.enqueued, tt.wantQueued)

			if tt.wantQueued > 0 {
				ev := q.enqueued[0]
				assert.Equal(t, reconcile.EventPaymentSucceeded, ev.Type)
				assert.Equal(t, "USD", ev.Currency)
				assert.Equal(t, int64(500), *ev.Amount)
			}
		})
	}
}

func TestHandler_MalformedBody(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/webhooks", webhook.NewHandler(normalize.NewService(normalize.Secrets{}), &fakeQueue{}).Routes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`not json`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
