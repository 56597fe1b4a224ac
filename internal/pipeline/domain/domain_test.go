package domain

import (
	"testing"
	"time"
)

func TestParseStageRejectsUnknownValues(t *testing.T) {
	for _, value := range []string{"", "New", "archived", "visit-scheduled"} {
		if _, err := ParseStage(value); err == nil {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
	for _, stage := range AllStages() {
		parsed, err := ParseStage(string(stage))
		if err != nil {
			t.Fatalf("expected %q to parse, got %v", stage, err)
		}
		if parsed != stage {
			t.Fatalf("expected %q, got %q", stage, parsed)
		}
	}
}

func TestNormalizeStageDefaultsToNew(t *testing.T) {
	if got := NormalizeStage(""); got != StageNew {
		t.Fatalf("expected new for empty stage, got %q", got)
	}
	if got := NormalizeStage("archived"); got != StageNew {
		t.Fatalf("expected new for unknown stage, got %q", got)
	}
	if got := NormalizeStage("negotiation"); got != StageNegotiation {
		t.Fatalf("expected negotiation, got %q", got)
	}
}

func TestAtLeastExcludesLost(t *testing.T) {
	if !StageWon.AtLeast(StageQualified) {
		t.Fatal("expected won to be at least qualified")
	}
	if StageContacted.AtLeast(StageQualified) {
		t.Fatal("expected contacted to be below qualified")
	}
	if StageLost.AtLeast(StageNew) {
		t.Fatal("expected lost to sit outside the funnel ordering")
	}
	if len(FunnelStages()) != 7 || len(AllStages()) != 8 {
		t.Fatalf("unexpected stage counts %d/%d", len(FunnelStages()), len(AllStages()))
	}
}

func TestPatchMergeAndWithout(t *testing.T) {
	budget := "300000"
	notes := "call after 18h"
	older := Patch{MaxBudget: &budget, Notes: &notes}

	newNotes := "prefers email"
	merged := older.Merge(Patch{Notes: &newNotes})
	if *merged.MaxBudget != "300000" || *merged.Notes != "prefers email" {
		t.Fatalf("unexpected merge result %+v", merged)
	}

	rest := merged.Without(Patch{MaxBudget: &budget, Notes: &notes})
	if rest.MaxBudget != nil {
		t.Fatal("expected budget to be cleared once confirmed")
	}
	if rest.Notes == nil || *rest.Notes != "prefers email" {
		t.Fatal("expected newer notes to survive a stale confirmation")
	}
}

func TestPatchOnlySplitsNamespaces(t *testing.T) {
	typology := "T3"
	patch := StagePatch(StageQualified).Merge(Patch{Typology: &typology})

	stageOnly := patch.Only(NamespaceStage)
	if stageOnly.Stage == nil || stageOnly.Typology != nil {
		t.Fatalf("unexpected stage namespace patch %+v", stageOnly)
	}
	prefsOnly := patch.Only(NamespacePreferences)
	if prefsOnly.Stage != nil || prefsOnly.Typology == nil {
		t.Fatalf("unexpected preferences namespace patch %+v", prefsOnly)
	}
	if got := len(patch.Namespaces()); got != 2 {
		t.Fatalf("expected 2 namespaces, got %d", got)
	}
}

func TestApplyDoesNotAliasInput(t *testing.T) {
	lead := Lead{ID: "l1", Stage: StageNew, CreatedAt: time.Now()}
	locations := []string{"Lisboa"}
	out := Patch{DesiredLocations: locations}.Apply(lead)
	locations[0] = "Porto"
	if out.Preferences.DesiredLocations[0] != "Lisboa" {
		t.Fatal("expected applied locations to be copied")
	}
	if lead.Preferences.DesiredLocations != nil {
		t.Fatal("expected original lead to be untouched")
	}
}

func TestActivityAtPrefersStageChange(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	changed := created.Add(48 * time.Hour)
	lead := Lead{CreatedAt: created}
	if !lead.ActivityAt().Equal(created) {
		t.Fatal("expected creation time without a stage change")
	}
	lead.StageChangedAt = &changed
	if !lead.ActivityAt().Equal(changed) {
		t.Fatal("expected stage change time")
	}
}
