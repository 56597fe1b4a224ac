package kpi

import (
	"testing"

	"leadboard_backend/internal/pipeline/domain"
)

func TestProjectFunnelCountsSumToTotal(t *testing.T) {
	leads := scenarioLeads()
	leads = append(leads, domain.Lead{ID: "weird", Stage: "archived"})

	f := ProjectFunnel(leads)
	sum := f.Lost.Count
	for _, b := range f.Stages {
		sum += b.Count
		if len(b.Leads) != b.Count {
			t.Fatalf("bucket %s count %d does not match %d leads", b.Stage, b.Count, len(b.Leads))
		}
	}
	if sum != len(leads) || f.Total != len(leads) {
		t.Fatalf("expected %d leads in buckets, got %d", len(leads), sum)
	}
	if f.Counts()[domain.StageNew] != 4 {
		t.Fatalf("expected unknown stage to land in new, got %d", f.Counts()[domain.StageNew])
	}
}

func TestProjectFunnelOrder(t *testing.T) {
	f := ProjectFunnel(nil)
	if len(f.Stages) != 7 {
		t.Fatalf("expected 7 funnel buckets, got %d", len(f.Stages))
	}
	for i, stage := range domain.FunnelStages() {
		if f.Stages[i].Stage != stage {
			t.Fatalf("bucket %d is %s, want %s", i, f.Stages[i].Stage, stage)
		}
	}
	if f.Lost.Stage != domain.StageLost || f.Total != 0 {
		t.Fatal("unexpected lost bucket for empty input")
	}
	if len(f.Counts()) != 8 {
		t.Fatalf("expected 8 counted stages, got %d", len(f.Counts()))
	}
}
