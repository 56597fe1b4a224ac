// Package contacts provides the contacts bounded context: the lead records
// the pipeline board reads and updates.
package contacts

import (
	"leadboard_backend/internal/contacts/handler"
	"leadboard_backend/internal/contacts/repository"
	"leadboard_backend/internal/contacts/service"
	"leadboard_backend/internal/events"
	apphttp "leadboard_backend/internal/http"
	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/platform/validator"

	gpvalidator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the contacts module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the contacts repository, service and handler.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator) (*Module, error) {
	if err := RegisterValidations(val); err != nil {
		return nil, err
	}

	svc := service.New(repository.New(pool), eventBus)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}, nil
}

// RegisterValidations adds the pipeline_stage tag.
func RegisterValidations(val *validator.Validator) error {
	return val.RegisterValidation("pipeline_stage", func(fl gpvalidator.FieldLevel) bool {
		return domain.IsValidStage(fl.Field().String())
	})
}

// Service exposes the contacts service for cross-module adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "contacts"
}

// RegisterRoutes mounts the contacts routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/contacts"))

	public := ctx.V1.Group("/public/contacts")
	if ctx.PublicRateLimiter != nil {
		public.Use(ctx.PublicRateLimiter.RateLimit())
	}
	m.handler.RegisterPublicRoutes(public)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
