// Package controlo provides the commercial-control bounded context: automatic
// KPIs, weekly logs, competitors, targets and weekly KPI snapshots.
package controlo

import (
	"context"

	"leadboard_backend/internal/controlo/handler"
	"leadboard_backend/internal/controlo/repository"
	"leadboard_backend/internal/controlo/service"
	"leadboard_backend/internal/events"
	apphttp "leadboard_backend/internal/http"
	"leadboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the controlo module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the controlo repository, service and handler. deps.Repo is
// filled from pool when unset.
func NewModule(pool *pgxpool.Pool, deps service.Deps, val *validator.Validator) *Module {
	if deps.Repo == nil {
		deps.Repo = repository.New(pool)
	}
	svc := service.New(deps)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Service exposes the controlo service for the scheduler.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "controlo"
}

// RegisterRoutes mounts the controlo routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/controlo"))
}

// RegisterHandlers drops cached reports when their inputs change.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ContactCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if ev, ok := e.(events.ContactCreated); ok && ev.ProjectID != nil {
			m.service.Invalidate(ctx, *ev.ProjectID)
		}
		return nil
	}))
	bus.Subscribe(events.ContactUpdated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if ev, ok := e.(events.ContactUpdated); ok && ev.ProjectID != nil {
			m.service.Invalidate(ctx, *ev.ProjectID)
		}
		return nil
	}))
	bus.Subscribe(events.WeeklyLogChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if ev, ok := e.(events.WeeklyLogChanged); ok {
			m.service.Invalidate(ctx, ev.ProjectID)
		}
		return nil
	}))
	bus.Subscribe(events.CompetitorChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if ev, ok := e.(events.CompetitorChanged); ok {
			m.service.Invalidate(ctx, ev.ProjectID)
		}
		return nil
	}))
	bus.Subscribe(events.TargetsChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if ev, ok := e.(events.TargetsChanged); ok {
			m.service.Invalidate(ctx, ev.ProjectID)
		}
		return nil
	}))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
