package transition

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadboard_backend/internal/kpi"
	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/internal/pipeline/store"
	"leadboard_backend/internal/pipeline/syncer"
	"leadboard_backend/platform/apperr"
)

type fakePersister struct {
	calls  int
	synced bool
	err    error
}

func (f *fakePersister) Persist(_ context.Context, leadID string, _ domain.Patch) (syncer.Result, error) {
	f.calls++
	return syncer.Result{LeadID: leadID, Synced: f.synced}, f.err
}

func setup() (*store.Store, *fakePersister, *Engine) {
	st := store.New()
	st.Replace([]domain.Lead{
		{ID: "a", Stage: domain.StageContacted, CreatedAt: time.Now()},
		{ID: "b", Stage: domain.StageQualified, CreatedAt: time.Now()},
	})
	p := &fakePersister{synced: true}
	return st, p, New(st, p)
}

func TestInvalidStageNeverMutates(t *testing.T) {
	st, p, engine := setup()
	for _, target := range []string{"", "archived", "Won", "lost "} {
		_, err := engine.RequestTransition(context.Background(), "a", target)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error for %q, got %v", target, err)
		}
	}
	lead, _ := st.Get("a")
	if lead.Stage != domain.StageContacted {
		t.Fatalf("expected stage to be untouched, got %q", lead.Stage)
	}
	if p.calls != 0 {
		t.Fatalf("expected no persistence, got %d calls", p.calls)
	}
}

func TestUnknownLead(t *testing.T) {
	_, _, engine := setup()
	if _, err := engine.RequestTransition(context.Background(), "zzz", "won"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAnyStageToAnyStage(t *testing.T) {
	st, _, engine := setup()
	for _, target := range []domain.Stage{domain.StageWon, domain.StageNew, domain.StageLost, domain.StageNegotiation} {
		out, err := engine.RequestTransition(context.Background(), "a", string(target))
		if err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
		if out.To != target || !out.Synced {
			t.Fatalf("unexpected outcome %+v", out)
		}
		if lead, _ := st.Get("a"); lead.Stage != target {
			t.Fatalf("expected %s, got %s", target, lead.Stage)
		}
	}
}

func TestDropOnSameColumnIsIdempotent(t *testing.T) {
	st, p, engine := setup()
	before := kpi.ProjectFunnel(st.All()).Counts()

	out, err := engine.Drop(context.Background(), DropRequest{LeadID: "b", Column: "qualified"})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if out.Changed {
		t.Fatal("expected no change")
	}
	if p.calls != 1 {
		t.Fatalf("expected the drop to round-trip once, got %d", p.calls)
	}

	after := kpi.ProjectFunnel(st.All()).Counts()
	for stage, count := range before {
		if after[stage] != count {
			t.Fatalf("bucket %s changed from %d to %d", stage, count, after[stage])
		}
	}
}

func TestTransientFailureKeepsNewStage(t *testing.T) {
	st, p, engine := setup()
	p.synced = false

	out, err := engine.RequestTransition(context.Background(), "a", "visit_scheduled")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Synced {
		t.Fatal("expected pending outcome")
	}
	if lead, _ := st.Get("a"); lead.Stage != domain.StageVisitScheduled {
		t.Fatalf("expected optimistic stage, got %q", lead.Stage)
	}
}

func TestPersistErrorIsReturned(t *testing.T) {
	_, p, engine := setup()
	p.err = apperr.Validation("rejected")
	out, err := engine.RequestTransition(context.Background(), "a", "won")
	if !errors.Is(err, p.err) {
		t.Fatalf("expected persister error, got %v", err)
	}
	if out.To != domain.StageWon {
		t.Fatalf("expected outcome to describe the attempt, got %+v", out)
	}
}

func TestDropRequiresLead(t *testing.T) {
	_, _, engine := setup()
	if _, err := engine.Drop(context.Background(), DropRequest{Column: "won"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
