package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/payrecon/internal/config"
	"github.com/MrJamesThe3rd/payrecon/internal/database"
	ledgerStore "github.com/MrJamesThe3rd/payrecon/internal/ledger/store"
	"github.com/MrJamesThe3rd/payrecon/internal/queue"
	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
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

	rdb, err := queue.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	logger := slog.Default().With("app", cfg.App.Name)
	engine := reconcile.NewEngine(ledgerStore.New(db, cfg.DB.LockTimeout), logger)

	jobs := queue.New(rdb, queue.Options{
		Prefix:            cfg.Queue.Prefix,
		Workers:           cfg.Queue.Workers,
		MaxAttempts:       cfg.Queue.MaxAttempts,
		BackoffBase:       cfg.Queue.BackoffBase,
		BackoffMax:        cfg.Queue.BackoffMax,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
	}, logger)

	jobs.Start(ctx, engine)

	<-ctx.Done()

	// In-flight events finish on their own context; Stop waits for them.
	jobs.Stop()
}
