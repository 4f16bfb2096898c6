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

	"github.com/MrJamesThe3rd/bnpl/internal/config"
	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/creditline/memstore"
	"github.com/MrJamesThe3rd/bnpl/internal/creditline/store"
	"github.com/MrJamesThe3rd/bnpl/internal/database"
	bnplHttp "github.com/MrJamesThe3rd/bnpl/internal/http"
	creditLineHandler "github.com/MrJamesThe3rd/bnpl/internal/http/creditline"
	settlementHandler "github.com/MrJamesThe3rd/bnpl/internal/http/settlement"
	sweepHandler "github.com/MrJamesThe3rd/bnpl/internal/http/sweep"
	"github.com/MrJamesThe3rd/bnpl/internal/keylock"
	"github.com/MrJamesThe3rd/bnpl/internal/settlement"
	"github.com/MrJamesThe3rd/bnpl/internal/underwriting"
	"github.com/MrJamesThe3rd/bnpl/internal/underwriting/partnerapi"
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
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	var (
		creditLineService = creditline.NewService(repo, provider, keylock.New(),
			creditline.WithRetry(cfg.Ledger.RetryAttempts, cfg.Ledger.RetryInterval),
			creditline.WithLockTimeout(cfg.Ledger.LockTimeout),
			creditline.WithMinDraw(cfg.Ledger.MinDraw),
		)
		settlementService = settlement.NewService(creditLineService)
	)

	var (
		creditLineH = creditLineHandler.NewHandler(creditLineService)
		settlementH = settlementHandler.NewHandler(settlementService)
		sweepH      = sweepHandler.NewHandler(creditLineService)
	)

	router := bnplHttp.New(bnplHttp.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.Server.Timeout,
	}, creditLineH, settlementH, sweepH)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "port", srv.Addr, "store", cfg.Store.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newRepository(ctx context.Context, cfg *config.Config) (creditline.Repository, func(), error) {
	if cfg.Store.Backend == "memory" {
		slog.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	db, err := database.New(ctx, cfg.ConnectionString(), cfg.DB.MaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := store.New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, func() { db.Close() }, nil
}

func newProvider(cfg *config.Config) (underwriting.Provider, error) {
	policy := underwriting.DefaultPolicy()
	if cfg.Underwriting.PolicyVersion != "" {
		policy.Version = cfg.Underwriting.PolicyVersion
	}
	policy.DTIEstimator = underwriting.Estimator(cfg.Underwriting.DTIEstimator)

	var gate underwriting.RiskGate = underwriting.NoReview{}
	if cfg.Underwriting.ManualReviewRate > 0 {
		gate = underwriting.NewSampledReview(cfg.Underwriting.ManualReviewRate, cfg.Underwriting.Seed)
	}

	engine, err := underwriting.NewEngine(policy, gate)
	if err != nil {
		return nil, fmt.Errorf("failed to build underwriting engine: %w", err)
	}

	if cfg.Partner.URL == "" {
		return engine, nil
	}

	slog.Info("routing partner decisions", "partner", cfg.Partner.Name, "url", cfg.Partner.URL)

	client := partnerapi.NewClient(cfg.Partner.URL, cfg.Partner.Token, cfg.Partner.Name, cfg.Partner.Timeout)

	return underwriting.NewRouter(engine).Route(cfg.Partner.Name, client), nil
}
