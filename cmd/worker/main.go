package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/bnpl/internal/config"
	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/creditline/store"
	"github.com/MrJamesThe3rd/bnpl/internal/database"
	"github.com/MrJamesThe3rd/bnpl/internal/keylock"
	"github.com/MrJamesThe3rd/bnpl/internal/sweep"
	"github.com/MrJamesThe3rd/bnpl/internal/underwriting"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Store.Backend != "postgres" {
		return fmt.Errorf("worker needs a shared store, got %q", cfg.Store.Backend)
	}

	db, err := database.New(ctx, cfg.ConnectionString(), cfg.DB.MaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repo := store.New(db)
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// The worker never underwrites; the engine only satisfies the service.
	engine, err := underwriting.NewEngine(underwriting.DefaultPolicy(), underwriting.NoReview{})
	if err != nil {
		return err
	}

	svc := creditline.NewService(repo, engine, keylock.New(),
		creditline.WithRetry(cfg.Ledger.RetryAttempts, cfg.Ledger.RetryInterval),
		creditline.WithLockTimeout(cfg.Ledger.LockTimeout),
	)

	scheduler, err := sweep.New(svc, cfg.Sweep.Schedule, cfg.Sweep.Timeout)
	if err != nil {
		return err
	}

	// Catch up on anything that aged while the worker was down.
	if _, err := scheduler.RunNow(ctx); err != nil {
		slog.Error("initial aging sweep failed", "error", err)
	}

	scheduler.Start()
	slog.Info("worker started", "schedule", cfg.Sweep.Schedule)

	<-ctx.Done()

	slog.Info("stopping worker")

	return scheduler.Stop(context.Background())
}
