package normalize

import (
	"errors"
	"net/http"

	"github.com/MrJamesThe3rd/payrecon/internal/normalize/stripe"
	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

type Gateway string

const (
	GatewayStripe Gateway = "stripe"
)

var (
	ErrUnknownGateway = errors.New("unknown gateway")
	// ErrSignature means the body could not be authenticated as coming from
	// the gateway. Gateway packages wrap their own sentinel, matched here.
	ErrSignature = stripe.ErrSignature
)

// Normalizer turns one gateway-specific webhook delivery into a normalized
// event. Malformed bodies are reported as reconcile.ErrPermanent.
type Normalizer interface {
	Normalize(header http.Header, body []byte) (reconcile.Event, error)
}
