package store

import (
	"sync"
	"testing"
	"time"

	"leadboard_backend/internal/pipeline/domain"
)

func seed() *Store {
	s := New()
	s.Replace([]domain.Lead{
		{ID: "a", Name: "Ana", Stage: domain.StageNew, CreatedAt: time.Now()},
		{ID: "b", Name: "Bruno", Stage: "archived", CreatedAt: time.Now()},
	})
	return s
}

func TestReplaceNormalizesUnknownStages(t *testing.T) {
	s := seed()
	lead, ok := s.Get("b")
	if !ok {
		t.Fatal("expected lead b")
	}
	if lead.Stage != domain.StageNew {
		t.Fatalf("expected unknown stage to load as new, got %q", lead.Stage)
	}
}

func TestApplyLocalIsVisibleImmediately(t *testing.T) {
	s := seed()
	if _, ok := s.ApplyLocal("a", domain.StagePatch(domain.StageQualified)); !ok {
		t.Fatal("expected lead a to exist")
	}
	lead, _ := s.Get("a")
	if lead.Stage != domain.StageQualified {
		t.Fatalf("expected optimistic stage, got %q", lead.Stage)
	}
	confirmed, _ := s.Confirmed("a")
	if confirmed.Stage != domain.StageNew {
		t.Fatalf("expected confirmed stage to be untouched, got %q", confirmed.Stage)
	}
}

func TestApplyLocalUnknownLead(t *testing.T) {
	s := seed()
	if _, ok := s.ApplyLocal("missing", domain.StagePatch(domain.StageWon)); ok {
		t.Fatal("expected unknown lead to be rejected")
	}
}

func TestConfirmKeepsNewerLocalEdit(t *testing.T) {
	s := seed()
	s.ApplyLocal("a", domain.StagePatch(domain.StageContacted))
	sent := s.Local("a")
	s.ApplyLocal("a", domain.StagePatch(domain.StageQualified))

	server, _ := s.Confirmed("a")
	server.Stage = domain.StageContacted
	s.Confirm("a", server, sent)

	lead, _ := s.Get("a")
	if lead.Stage != domain.StageQualified {
		t.Fatalf("expected newer local stage to win, got %q", lead.Stage)
	}

	s.Confirm("a", server, domain.StagePatch(domain.StageQualified))
	if !s.Local("a").IsEmpty() {
		t.Fatal("expected overlay to be cleared")
	}
}

func TestRevertFallsBackToConfirmed(t *testing.T) {
	s := seed()
	notes := "x"
	patch := domain.Patch{Notes: &notes}
	s.ApplyLocal("a", patch)
	s.Revert("a", patch)
	lead, _ := s.Get("a")
	if lead.Preferences.Notes != nil {
		t.Fatal("expected notes to be reverted")
	}
}

func TestReplaceKeepsOverlayForKnownLeads(t *testing.T) {
	s := seed()
	s.ApplyLocal("a", domain.StagePatch(domain.StageWon))
	s.ApplyLocal("b", domain.StagePatch(domain.StageLost))
	s.Replace([]domain.Lead{{ID: "a", Stage: domain.StageNew}})

	lead, _ := s.Get("a")
	if lead.Stage != domain.StageWon {
		t.Fatalf("expected overlay to survive reload, got %q", lead.Stage)
	}
	if _, ok := s.Get("b"); ok {
		t.Fatal("expected lead b to be gone")
	}
	if s.Len() != 1 || len(s.All()) != 1 {
		t.Fatalf("expected one lead, got %d", s.Len())
	}
}

func TestConcurrentWritesDifferentLeads(t *testing.T) {
	s := seed()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.ApplyLocal("a", domain.StagePatch(domain.StageQualified))
		}()
		go func() {
			defer wg.Done()
			_ = s.All()
		}()
	}
	wg.Wait()
	lead, _ := s.Get("a")
	if lead.Stage != domain.StageQualified {
		t.Fatalf("unexpected stage %q", lead.Stage)
	}
}
