package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/payrecon/internal/billing"
	"github.com/MrJamesThe3rd/payrecon/internal/config"
	"github.com/MrJamesThe3rd/payrecon/internal/database"
	payreconHttp "github.com/MrJamesThe3rd/payrecon/internal/http"
	billingHandler "github.com/MrJamesThe3rd/payrecon/internal/http/billing"
	"github.com/MrJamesThe3rd/payrecon/internal/http/deadletter"
	"github.com/MrJamesThe3rd/payrecon/internal/http/event"
	ledgerHandler "github.com/MrJamesThe3rd/payrecon/internal/http/ledger"
	"github.com/MrJamesThe3rd/payrecon/internal/http/webhook"
	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/payrecon/internal/ledger/store"
	"github.com/MrJamesThe3rd/payrecon/internal/normalize"
	"github.com/MrJamesThe3rd/payrecon/internal/queue"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.ConnectionString(), database.DefaultPool)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.MigrateUp(cfg.MigrationURL()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	rdb, err := queue.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	store := ledgerStore.New(db, cfg.DB.LockTimeout)
	jobs := queue.New(rdb, queue.Options{
		Prefix:      cfg.Queue.Prefix,
		MaxAttempts: cfg.Queue.MaxAttempts,
	}, slog.Default())

	var (
		ledgerService    = ledger.NewService(store)
		normalizeService = normalize.NewService(normalize.Secrets{Stripe: cfg.Gateways.StripeWebhookSecret})
		billingService   = billing.NewService(store, billing.NoopGateway{}, billing.Settings{
			CommissionRate:  cfg.Billing.CommissionRate,
			DefaultCurrency: cfg.Billing.DefaultCurrency,
		})
	)

	router := payreconHttp.New(
		payreconHttp.Config{AllowedOrigins: cfg.Server.AllowedOrigins, JWTSecret: cfg.Auth.JWTSecret},
		event.NewHandler(jobs),
		webhook.NewHandler(normalizeService, jobs),
		ledgerHandler.NewHandler(ledgerService),
		billingHandler.NewHandler(billingService),
		deadletter.NewHandler(jobs),
	)

	if cfg.Auth.JWTSecret == "" {
		slog.Warn("AUTH_JWT_SECRET is empty, event ingestion is unauthenticated")
	}

	if cfg.Gateways.StripeWebhookSecret == "" {
		slog.Warn("STRIPE_WEBHOOK_SECRET is empty, stripe signatures are not verified")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		slog.Info("starting server", "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}

	slog.Info("server stopped")
}
