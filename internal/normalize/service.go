package normalize

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/payrecon/internal/normalize/stripe"
	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

type Secrets struct {
	Stripe string
}

type Service struct {
	normalizers map[Gateway]Normalizer
}

func NewService(secrets Secrets) *Service {
	return &Service{
		normalizers: map[Gateway]Normalizer{
			GatewayStripe: stripe.New(secrets.Stripe),
		},
	}
}

func (s *Service) Normalize(gateway string, header http.Header, body []byte) (reconcile.Event, error) {
	n, ok := s.normalizers[Gateway(strings.ToLower(gateway))]
	if !ok {
		return reconcile.Event{}, fmt.Errorf("%w: %s", ErrUnknownGateway, gateway)
	}

	ev, err := n.Normalize(header, body)
	if err != nil {
		return reconcile.Event{}, err
	}

	ev = ev.Normalize()
	if err := ev.Validate(); err != nil {
		return reconcile.Event{}, err
	}

	return ev, nil
}
