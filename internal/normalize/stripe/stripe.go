// Package stripe normalizes Stripe webhook deliveries.
package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

const (
	SignatureHeader = "Stripe-Signature"

	// DefaultTolerance is how old a signed timestamp may be before the
	// delivery is treated as a replay.
	DefaultTolerance = 5 * time.Minute
)

var ErrSignature = errors.New("invalid stripe signature")

// typeMap translates the Stripe event types the engine acts on. Any other
// type passes through verbatim and is acknowledged as unknown downstream.
var typeMap = map[string]reconcile.EventType{
	"payment_intent.succeeded":      reconcile.EventPaymentSucceeded,
	"payment_intent.payment_failed": reconcile.EventPaymentFailed,
	"charge.refunded":               reconcile.EventRefund,
}

type Normalizer struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

// New returns a normalizer that verifies signatures with secret. An empty
// secret disables verification.
func New(secret string) *Normalizer {
	return &Normalizer{
		secret:    secret,
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
}

type event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object object `json:"object"`
	} `json:"data"`
}

type object struct {
	ID             string `json:"id"`
	Object         string `json:"object"`
	Amount         *int64 `json:"amount"`
	AmountReceived *int64 `json:"amount_received"`
	AmountRefunded *int64 `json:"amount_refunded"`
	Currency       string `json:"currency"`
	PaymentIntent  string `json:"payment_intent"`
}

func (n *Normalizer) Normalize(header http.Header, body []byte) (reconcile.Event, error) {
	if n.secret != "" {
		if err := n.verify(header.Get(SignatureHeader), body); err != nil {
			return reconcile.Event{}, err
		}
	}

	var e event
	if err := json.Unmarshal(body, &e); err != nil {
		return reconcile.Event{}, fmt.Errorf("%w: decode stripe event: %v", reconcile.ErrPermanent, err)
	}

	obj := e.Data.Object

	ev := reconcile.Event{
		Gateway:         "stripe",
		ExternalEventID: e.ID,
		Type:            reconcile.EventType(e.Type),
		SubjectID:       obj.ID,
		Currency:        obj.Currency,
		Raw:             json.RawMessage(body),
	}

	if t, ok := typeMap[e.Type]; ok {
		ev.Type = t
	}

	// Charges point back at the payment intent the transaction was opened with.
	if obj.Object == "charge" || obj.PaymentIntent != "" {
		ev.SubjectID = obj.PaymentIntent
	}

	switch ev.Type {
	case reconcile.EventPaymentSucceeded:
		ev.Amount = firstOf(obj.AmountReceived, obj.Amount)
	case reconcile.EventRefund:
		ev.Amount = firstOf(obj.AmountRefunded, obj.Amount)
	default:
		ev.Amount = obj.Amount
	}

	return ev, nil
}

func firstOf(vals ...*int64) *int64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}

	return nil
}

// verify checks a header of the form "t=<unix>,v1=<hex>[,v1=<hex>...]".
func (n *Normalizer) verify(header string, body []byte) error {
	if header == "" {
		return fmt.Errorf("%w: missing %s header", ErrSignature, SignatureHeader)
	}

	var (
		ts   string
		sigs []string
	)

	for part := range strings.SplitSeq(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}

		switch k {
		case "t":
			ts = v
		case "v1":
			sigs = append(sigs, v)
		}
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp %q", ErrSignature, ts)
	}

	if age := n.now().Sub(time.Unix(unix, 0)); age > n.tolerance || age < -n.tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrSignature)
	}

	expected := Sign(n.secret, unix, body)

	for _, sig := range sigs {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}

	return fmt.Errorf("%w: no matching v1 signature", ErrSignature)
}

// Sign computes the v1 signature Stripe sends for body at timestamp unix.
func Sign(secret string, unix int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(unix, 10)))
	mac.Write([]byte("."))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}
