package kpi

import "leadboard_backend/internal/pipeline/domain"

// Bucket is one board column.
type Bucket struct {
	Stage domain.Stage
	Count int
	Leads []domain.Lead
}

// Funnel groups leads into the seven ordered stages plus lost.
type Funnel struct {
	Stages []Bucket
	Lost   Bucket
	Total  int
}

// ProjectFunnel buckets leads by stage. Unknown stages land in new.
func ProjectFunnel(leads []domain.Lead) Funnel {
	stages := domain.FunnelStages()
	f := Funnel{
		Stages: make([]Bucket, len(stages)),
		Lost:   Bucket{Stage: domain.StageLost},
		Total:  len(leads),
	}
	for i, stage := range stages {
		f.Stages[i] = Bucket{Stage: stage}
	}

	for _, lead := range leads {
		stage := domain.NormalizeStage(string(lead.Stage))
		if stage == domain.StageLost {
			f.Lost.Leads = append(f.Lost.Leads, lead)
			f.Lost.Count++
			continue
		}
		b := &f.Stages[stage.Rank()]
		b.Leads = append(b.Leads, lead)
		b.Count++
	}
	return f
}

// Counts returns the lead count of every stage, zeros included.
func (f Funnel) Counts() map[domain.Stage]int {
	counts := make(map[domain.Stage]int, len(f.Stages)+1)
	for _, b := range f.Stages {
		counts[b.Stage] = b.Count
	}
	counts[domain.StageLost] = f.Lost.Count
	return counts
}
