// Package preferences reads and writes buyer preferences for a lead.
package preferences

import (
	"context"

	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/internal/pipeline/fallback"
	"leadboard_backend/internal/pipeline/store"
	"leadboard_backend/internal/pipeline/syncer"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/logger"
)

// Persister writes accepted changes to the backend.
type Persister interface {
	Persist(ctx context.Context, leadID string, patch domain.Patch) (syncer.Result, error)
}

// Cache merges the session overlay, the confirmed record and the fallback
// cache per field.
type Cache struct {
	store     *store.Store
	fallback  *fallback.Cache
	persister Persister
	log       *logger.Logger
}

// New creates a Cache.
func New(st *store.Store, fb *fallback.Cache, persister Persister, log *logger.Logger) *Cache {
	return &Cache{store: st, fallback: fb, persister: persister, log: log}
}

// Get returns the preferences of leadID. For each field the first non-empty
// value wins, in order: this session's edits, the backend-confirmed record,
// the fallback cache.
func (c *Cache) Get(ctx context.Context, leadID string) (domain.Preferences, error) {
	confirmed, ok := c.store.Confirmed(leadID)
	if !ok {
		return domain.Preferences{}, apperr.NotFound("lead not found").WithOp("preferences.Get")
	}
	session := c.store.Local(leadID).Preferences()

	pending, err := c.fallback.Pending(ctx, domain.NamespacePreferences, leadID)
	if err != nil {
		c.log.Warn("read pending preferences failed", "leadId", leadID, "error", err)
	}

	return merge(session, confirmed.Preferences, pending.Preferences()), nil
}

// Set applies the non-nil fields of prefs optimistically and persists them.
func (c *Cache) Set(ctx context.Context, leadID string, prefs domain.Preferences) (syncer.Result, error) {
	patch := domain.PreferencesPatch(prefs)
	if patch.IsEmpty() {
		return syncer.Result{}, apperr.Validation("no preference fields to update").WithOp("preferences.Set")
	}
	if _, ok := c.store.ApplyLocal(leadID, patch); !ok {
		return syncer.Result{}, apperr.NotFound("lead not found").WithOp("preferences.Set")
	}
	return c.persister.Persist(ctx, leadID, patch)
}

func merge(sources ...domain.Preferences) domain.Preferences {
	var out domain.Preferences
	for _, src := range sources {
		if len(out.DesiredLocations) == 0 && len(src.DesiredLocations) > 0 {
			out.DesiredLocations = append([]string(nil), src.DesiredLocations...)
		}
		if isBlank(out.MaxBudget) && !isBlank(src.MaxBudget) {
			out.MaxBudget = copyString(src.MaxBudget)
		}
		if isBlank(out.Typology) && !isBlank(src.Typology) {
			out.Typology = copyString(src.Typology)
		}
		if isBlank(out.Notes) && !isBlank(src.Notes) {
			out.Notes = copyString(src.Notes)
		}
	}
	return out
}

func isBlank(v *string) bool {
	return v == nil || *v == ""
}

func copyString(v *string) *string {
	s := *v
	return &s
}
