package reconcile

import (
	"context"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

type Admission int

const (
	Admitted Admission = iota + 1
	AlreadySeen
)

func (a Admission) String() string {
	switch a {
	case Admitted:
		return "admitted"
	case AlreadySeen:
		return "already_seen"
	default:
		return "unknown"
	}
}

// Deduplicator guarantees each (gateway, external_event_id) is applied at
// most once. The unique constraint behind Tx.AdmitEvent is the only
// enforcement; nothing is cached in process.
type Deduplicator struct{}

// Admit records ev as received inside tx. On Admitted, ev.ID is populated.
func (Deduplicator) Admit(ctx context.Context, tx Tx, ev *ledger.WebhookEvent) (Admission, error) {
	admitted, err := tx.AdmitEvent(ctx, ev)
	if err != nil {
		return 0, transient("admit event", err)
	}

	if !admitted {
		return AlreadySeen, nil
	}

	return Admitted, nil
}
