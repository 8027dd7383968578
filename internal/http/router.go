package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/payrecon/internal/http/auth"
	"github.com/MrJamesThe3rd/payrecon/internal/http/billing"
	"github.com/MrJamesThe3rd/payrecon/internal/http/deadletter"
	"github.com/MrJamesThe3rd/payrecon/internal/http/event"
	"github.com/MrJamesThe3rd/payrecon/internal/http/ledger"
	"github.com/MrJamesThe3rd/payrecon/internal/http/webhook"
)

type Config struct {
	AllowedOrigins []string
	// JWTSecret guards normalized event ingestion and the dead-letter
	// endpoints. Empty disables the check.
	JWTSecret string
}

func New(
	cfg Config,
	eventsV1 *event.Handler,
	webhooksV1 *webhook.Handler,
	ledgerV1 *ledger.Handler,
	billingV1 *billing.Handler,
	deadLettersV1 *deadletter.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Use(auth.Middleware(cfg.JWTSecret))
			r.Use(middleware.AllowContentType("application/json"))
			eventsV1.Routes(r)
		})

		// Gateways authenticate with their own body signatures.
		r.Route("/webhooks", webhooksV1.Routes)

		r.Route("/ledger", ledgerV1.Routes)

		r.Route("/billing", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			billingV1.Routes(r)
		})

		r.Route("/dead-letters", func(r chi.Router) {
			r.Use(auth.Middleware(cfg.JWTSecret))
			deadLettersV1.Routes(r)
		})
	})

	return router
}
