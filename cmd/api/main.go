package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadboard_backend/internal/adapters"
	"leadboard_backend/internal/contacts"
	contactsrepo "leadboard_backend/internal/contacts/repository"
	"leadboard_backend/internal/controlo"
	controlocache "leadboard_backend/internal/controlo/cache"
	"leadboard_backend/internal/controlo/importer"
	controlosvc "leadboard_backend/internal/controlo/service"
	"leadboard_backend/internal/events"
	apphttp "leadboard_backend/internal/http"
	"leadboard_backend/internal/http/router"
	"leadboard_backend/internal/kpi"
	"leadboard_backend/internal/scheduler"
	"leadboard_backend/platform/config"
	"leadboard_backend/platform/db"
	"leadboard_backend/platform/logger"
	"leadboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	targetsFile, err := kpi.LoadTargetsFile(cfg.GetKPITargetsFile())
	if err != nil {
		log.Error("failed to load kpi targets", "error", err, "path", cfg.GetKPITargetsFile())
		panic("failed to load kpi targets: " + err.Error())
	}

	reportCache, err := controlocache.Open(ctx, cfg.GetRedisURL(), cfg.GetKPICacheTTL())
	if err != nil {
		log.Warn("kpi report cache unavailable", "error", err)
		reportCache = controlocache.New(nil, cfg.GetKPICacheTTL())
	}
	defer func() { _ = reportCache.Close() }()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	contactsModule, err := contacts.NewModule(pool, eventBus, val)
	if err != nil {
		log.Error("failed to initialize contacts module", "error", err)
		panic("failed to initialize contacts module: " + err.Error())
	}

	// Anti-Corruption Layer: controlo reads contacts as pipeline leads
	leadReader := adapters.NewControloLeadReader(contactsrepo.New(pool))

	controloModule := controlo.NewModule(pool, controlosvc.Deps{
		Leads:       leadReader,
		Cache:       reportCache,
		Fetcher:     importer.New(log),
		TargetsFile: targetsFile,
		EventBus:    eventBus,
		Log:         log,
	}, val)
	controloModule.RegisterHandlers(eventBus)

	if closeClient := initSnapshotEnqueuer(cfg, controloModule.Service(), log); closeClient != nil {
		defer closeClient()
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			contactsModule,
			controloModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initSnapshotEnqueuer hands snapshot requests to the scheduler worker when
// Redis is configured. Without it snapshots are recorded inline.
func initSnapshotEnqueuer(cfg config.SchedulerConfig, svc *controlosvc.Service, log *logger.Logger) func() {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; kpi snapshots run inline")
		return nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil
	}
	svc.SetSnapshotEnqueuer(client)

	return func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}
