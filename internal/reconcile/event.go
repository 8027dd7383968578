package reconcile

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/currency"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

// EventType is the gateway-agnostic kind of a payment event.
type EventType string

const (
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
	EventRefund           EventType = "refund"
)

// Column widths of the webhook_events table, in characters.
const (
	MaxGatewayLen = 32
	MaxIDLen      = 255
	MaxTypeLen    = 64
)

var refundTypes = map[EventType]struct{}{
	EventRefund:        {},
	"refunded":         {},
	"payment_refunded": {},
}

// Event is one normalized webhook delivery, already verified and parsed by
// the gateway-specific normalizer.
type Event struct {
	Gateway         string          `json:"gateway"`
	ExternalEventID string          `json:"external_event_id"`
	Type            EventType       `json:"type"`
	SubjectID       string          `json:"subject_id"`
	Amount          *int64          `json:"amount,omitempty"`
	Currency        string          `json:"currency,omitempty"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// Normalize trims identifiers and lower-cases the gateway so that the same
// delivery always produces the same dedup key.
func (e Event) Normalize() Event {
	e.Gateway = strings.ToLower(strings.TrimSpace(e.Gateway))
	e.ExternalEventID = strings.TrimSpace(e.ExternalEventID)
	e.Type = EventType(strings.ToLower(strings.TrimSpace(string(e.Type))))
	e.SubjectID = strings.TrimSpace(e.SubjectID)
	e.Currency = strings.ToUpper(strings.TrimSpace(e.Currency))

	return e
}

// Validate reports missing or malformed fields as ErrPermanent.
func (e Event) Validate() error {
	switch {
	case e.Gateway == "":
		return malformed("gateway is required")
	case e.ExternalEventID == "":
		return malformed("external_event_id is required")
	case e.Type == "":
		return malformed("type is required")
	case e.SubjectID == "":
		return malformed("subject_id is required")
	}

	for _, f := range []struct {
		name  string
		value string
		limit int
	}{
		{"gateway", e.Gateway, MaxGatewayLen},
		{"external_event_id", e.ExternalEventID, MaxIDLen},
		{"type", string(e.Type), MaxTypeLen},
		{"subject_id", e.SubjectID, MaxIDLen},
	} {
		if n := utf8.RuneCountInString(f.value); n > f.limit {
			return malformed("%s is %d characters, limit is %d", f.name, n, f.limit)
		}

		if strings.ContainsRune(f.value, 0) {
			return malformed("%s contains a NUL character", f.name)
		}
	}

	if e.Amount != nil && *e.Amount < 0 {
		return malformed("amount %d is negative", *e.Amount)
	}

	if e.Currency != "" {
		if _, err := currency.ParseISO(e.Currency); err != nil {
			return malformed("currency %q: %v", e.Currency, err)
		}
	}

	if len(e.Raw) > 0 && !json.Valid(e.Raw) {
		return malformed("raw payload is not valid JSON")
	}

	if hasNulEscape(e.Raw) {
		return malformed("raw payload contains a NUL character")
	}

	return nil
}

func (e Event) IsRefund() bool {
	_, ok := refundTypes[e.Type]
	return ok
}

// identified reports whether the event carries a dedup key that fits the
// webhook_events table, so a failure row can be written for it.
func (e Event) identified() bool {
	return e.Gateway != "" && e.ExternalEventID != "" &&
		utf8.RuneCountInString(e.Gateway) <= MaxGatewayLen &&
		utf8.RuneCountInString(e.ExternalEventID) <= MaxIDLen &&
		!strings.ContainsRune(e.Gateway, 0) &&
		!strings.ContainsRune(e.ExternalEventID, 0)
}

// record builds the webhook_events row for e. Type and subject are clipped
// to their columns and an unstorable payload is dropped, so a rejected event
// still leaves an audit row.
func (e Event) record(status ledger.EventStatus) *ledger.WebhookEvent {
	rec := &ledger.WebhookEvent{
		Gateway:         e.Gateway,
		ExternalEventID: e.ExternalEventID,
		EventType:       clip(string(e.Type), MaxTypeLen),
		SubjectID:       clip(e.SubjectID, MaxIDLen),
		Status:          status,
		Payload:         e.Raw,
	}

	if !json.Valid(e.Raw) || hasNulEscape(e.Raw) {
		rec.Payload = nil
	}

	return rec
}

func clip(s string, limit int) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	return string([]rune(s)[:limit])
}

// hasNulEscape reports whether raw holds a \u0000 escape, which jsonb
// refuses to store.
func hasNulEscape(raw []byte) bool {
	for i := 0; i+6 <= len(raw); i++ {
		if raw[i] != '\\' {
			continue
		}

		if raw[i+1] == 'u' && string(raw[i+2:i+6]) == "0000" {
			return true
		}

		// Skip the escaped character so an escaped backslash is not read
		// as the start of another escape.
		i++
	}

	return false
}
