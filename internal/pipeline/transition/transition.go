// Package transition moves leads between pipeline stages. Every input
// modality (drag-and-drop, menu, keyboard) goes through RequestTransition.
package transition

import (
	"context"

	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/internal/pipeline/store"
	"leadboard_backend/internal/pipeline/syncer"
	"leadboard_backend/platform/apperr"
)

// Persister writes accepted changes to the backend.
type Persister interface {
	Persist(ctx context.Context, leadID string, patch domain.Patch) (syncer.Result, error)
}

// Outcome describes an accepted transition.
type Outcome struct {
	LeadID  string
	From    domain.Stage
	To      domain.Stage
	Changed bool
	Synced  bool
}

// Engine validates transitions and applies them optimistically.
type Engine struct {
	store     *store.Store
	persister Persister
}

// New creates an Engine.
func New(st *store.Store, persister Persister) *Engine {
	return &Engine{store: st, persister: persister}
}

// RequestTransition moves leadID to target. Any stage may move to any stage.
// An unknown target is rejected without touching the record. The store is
// updated before the backend is called; a transient failure leaves the new
// stage in place.
func (e *Engine) RequestTransition(ctx context.Context, leadID, target string) (Outcome, error) {
	stage, err := domain.ParseStage(target)
	if err != nil {
		return Outcome{}, apperr.Validation(err.Error()).WithOp("transition.RequestTransition")
	}

	current, ok := e.store.Get(leadID)
	if !ok {
		return Outcome{}, apperr.NotFound("lead not found").WithOp("transition.RequestTransition")
	}

	patch := domain.StagePatch(stage)
	e.store.ApplyLocal(leadID, patch)

	outcome := Outcome{
		LeadID:  leadID,
		From:    current.Stage,
		To:      stage,
		Changed: current.Stage != stage,
	}

	res, err := e.persister.Persist(ctx, leadID, patch)
	if err != nil {
		return outcome, err
	}
	outcome.Synced = res.Synced
	return outcome, nil
}

// DropRequest is a drag-and-drop gesture: a card released over a column.
type DropRequest struct {
	LeadID string
	Column string
}

// Drop maps a drop gesture to a transition. Dropping a card on its own column
// still round-trips to the backend.
func (e *Engine) Drop(ctx context.Context, req DropRequest) (Outcome, error) {
	if req.LeadID == "" {
		return Outcome{}, apperr.Validation("lead id is required").WithOp("transition.Drop")
	}
	return e.RequestTransition(ctx, req.LeadID, req.Column)
}
