// Package pipeline wires the client-side board: lead store, fallback cache,
// backend client, sync manager, transition engine and preference cache.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"leadboard_backend/internal/events"
	"leadboard_backend/internal/kpi"
	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/internal/pipeline/fallback"
	"leadboard_backend/internal/pipeline/preferences"
	"leadboard_backend/internal/pipeline/remote"
	"leadboard_backend/internal/pipeline/store"
	"leadboard_backend/internal/pipeline/syncer"
	"leadboard_backend/internal/pipeline/transition"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/config"
	"leadboard_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Board is the entry point used by the UI layer.
type Board struct {
	projectID string
	store     *store.Store
	cache     *fallback.Cache
	remote    *remote.Client
	sync      *syncer.Manager
	engine    *transition.Engine
	prefs     *preferences.Cache
	log       *logger.Logger
	now       func() time.Time
}

// New assembles a board over an open fallback backend.
func New(rc *remote.Client, backend fallback.Backend, notifier syncer.Notifier, projectID string, log *logger.Logger) *Board {
	st := store.New()
	cache := fallback.New(backend)
	manager := syncer.New(st, cache, rc, notifier, projectID, log)

	return &Board{
		projectID: projectID,
		store:     st,
		cache:     cache,
		remote:    rc,
		sync:      manager,
		engine:    transition.New(st, manager),
		prefs:     preferences.New(st, cache, manager, log),
		log:       log,
		now:       time.Now,
	}
}

// NewFromConfig opens the configured fallback backend. Notifications are
// published on bus when it is not nil, logged otherwise.
func NewFromConfig(ctx context.Context, cfg config.BoardConfig, projectID string, bus events.Bus, log *logger.Logger) (*Board, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var notifier syncer.Notifier = syncer.NewLogNotifier(log)
	if bus != nil {
		notifier = syncer.NewBusNotifier(bus)
	}
	return New(remote.NewFromConfig(cfg, log), backend, notifier, projectID, log), nil
}

func openBackend(ctx context.Context, cfg config.BoardConfig) (fallback.Backend, error) {
	switch cfg.GetFallbackDriver() {
	case "sqlite":
		return fallback.NewSQLiteBackend(cfg.GetFallbackPath())
	case "redis":
		return fallback.NewRedisBackend(ctx, cfg.GetFallbackRedisURL(), cfg.GetFallbackKeyPrefix())
	default:
		return nil, fmt.Errorf("unsupported fallback driver %q", cfg.GetFallbackDriver())
	}
}

// Close releases the fallback backend.
func (b *Board) Close() error {
	return b.cache.Close()
}

// Reconcile loads the board and replays pending writes.
func (b *Board) Reconcile(ctx context.Context) (syncer.ReconcileReport, error) {
	return b.sync.Reconcile(ctx)
}

// Lead returns the current merged record.
func (b *Board) Lead(leadID string) (domain.Lead, error) {
	lead, ok := b.store.Get(leadID)
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

// Leads returns every current record.
func (b *Board) Leads() []domain.Lead {
	return b.store.All()
}

// RequestTransition moves a lead to another stage.
func (b *Board) RequestTransition(ctx context.Context, leadID, target string) (transition.Outcome, error) {
	return b.engine.RequestTransition(ctx, leadID, target)
}

// Drop handles a card dropped on a column.
func (b *Board) Drop(ctx context.Context, req transition.DropRequest) (transition.Outcome, error) {
	return b.engine.Drop(ctx, req)
}

// Preferences returns the merged preferences of a lead.
func (b *Board) Preferences(ctx context.Context, leadID string) (domain.Preferences, error) {
	return b.prefs.Get(ctx, leadID)
}

// SetPreferences edits the preferences of a lead.
func (b *Board) SetPreferences(ctx context.Context, leadID string, prefs domain.Preferences) (syncer.Result, error) {
	return b.prefs.Set(ctx, leadID, prefs)
}

// Funnel projects the current records into stage buckets.
func (b *Board) Funnel() kpi.Funnel {
	return kpi.ProjectFunnel(b.store.All())
}

// KPIs recomputes the project report from the current records plus the
// units, weekly logs, competitors and targets held by the backend.
func (b *Board) KPIs(ctx context.Context) (kpi.ProjectReport, error) {
	var (
		units       []kpi.Unit
		logs        []kpi.WeeklyLog
		competitors []kpi.Competitor
		targets     *kpi.Targets
		unitTargets map[string]kpi.Targets
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		units, err = b.remote.ListUnits(gctx, b.projectID)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = b.remote.ListWeeklyLogs(gctx, b.projectID)
		return err
	})
	g.Go(func() error {
		var err error
		competitors, err = b.remote.ListCompetitors(gctx, b.projectID)
		return err
	})
	g.Go(func() error {
		resp, err := b.remote.Targets(gctx, b.projectID)
		if err != nil {
			return err
		}
		targets, unitTargets = resp.Project, resp.Units
		return nil
	})
	if err := g.Wait(); err != nil {
		return kpi.ProjectReport{}, apperr.Wrap(apperr.KindUnavailable, "load kpi inputs", err)
	}

	return kpi.ComputeProject(kpi.ProjectInput{
		ProjectID:   b.projectID,
		Leads:       b.store.All(),
		Units:       units,
		WeeklyLogs:  logs,
		Competitors: competitors,
		Targets:     targets,
		UnitTargets: unitTargets,
		Now:         b.now(),
	}), nil
}

// ServerKPIs fetches the report computed by the backend.
func (b *Board) ServerKPIs(ctx context.Context) (kpi.ProjectReport, error) {
	report, err := b.remote.AutoKPIs(ctx, b.projectID)
	if err != nil {
		return kpi.ProjectReport{}, apperr.Wrap(apperr.KindUnavailable, "load server kpis", err)
	}
	return report, nil
}
