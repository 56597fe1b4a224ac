package preferences

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/internal/pipeline/fallback"
	"leadboard_backend/internal/pipeline/store"
	"leadboard_backend/internal/pipeline/syncer"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/logger"
)

type fakePersister struct {
	patches []domain.Patch
}

func (f *fakePersister) Persist(_ context.Context, leadID string, patch domain.Patch) (syncer.Result, error) {
	f.patches = append(f.patches, patch)
	return syncer.Result{LeadID: leadID}, nil
}

func strPtr(v string) *string { return &v }

func setup(t *testing.T) (*store.Store, *fallback.Cache, *fakePersister, *Cache) {
	t.Helper()
	backend, err := fallback.NewSQLiteBackend(filepath.Join(t.TempDir(), "fallback.db"))
	if err != nil {
		t.Fatalf("open fallback: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	st := store.New()
	st.Replace([]domain.Lead{{
		ID:        "a",
		Stage:     domain.StageNew,
		CreatedAt: time.Now(),
		Preferences: domain.Preferences{
			MaxBudget: strPtr("350000"),
			Notes:     strPtr(""),
		},
	}})
	fb := fallback.New(backend)
	p := &fakePersister{}
	return st, fb, p, New(st, fb, p, logger.NewWithWriter("test", io.Discard))
}

func TestGetMergesPerField(t *testing.T) {
	st, fb, _, cache := setup(t)
	ctx := context.Background()

	_ = fb.Put(ctx, domain.NamespacePreferences, "a", domain.Patch{
		Notes:     strPtr("pending note"),
		MaxBudget: strPtr("100"),
	})
	st.ApplyLocal("a", domain.Patch{Typology: strPtr("T3")})

	prefs, err := cache.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if prefs.Typology == nil || *prefs.Typology != "T3" {
		t.Fatal("expected session typology")
	}
	if prefs.MaxBudget == nil || *prefs.MaxBudget != "350000" {
		t.Fatal("expected confirmed budget to win over the fallback")
	}
	if prefs.Notes == nil || *prefs.Notes != "pending note" {
		t.Fatal("expected pending note to fill the empty confirmed value")
	}
	if prefs.DesiredLocations != nil {
		t.Fatal("expected no locations")
	}
}

func TestSetAppliesOptimisticallyAndPersists(t *testing.T) {
	st, _, p, cache := setup(t)

	if _, err := cache.Set(context.Background(), "a", domain.Preferences{DesiredLocations: []string{"Sintra"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	lead, _ := st.Get("a")
	if len(lead.Preferences.DesiredLocations) != 1 {
		t.Fatal("expected optimistic locations")
	}
	if len(p.patches) != 1 || p.patches[0].Stage != nil || p.patches[0].MaxBudget != nil {
		t.Fatalf("expected a single locations-only patch, got %+v", p.patches)
	}
}

func TestSetRejectsEmptyAndUnknown(t *testing.T) {
	_, _, _, cache := setup(t)
	if _, err := cache.Set(context.Background(), "a", domain.Preferences{}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := cache.Set(context.Background(), "x", domain.Preferences{Notes: strPtr("n")}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := cache.Get(context.Background(), "x"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
