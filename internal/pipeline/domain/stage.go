// Package domain holds the lead and pipeline-stage types shared by the board
// client, the KPI aggregator and the contacts backend.
package domain

import "fmt"

// Stage is a position in the sales funnel.
type Stage string

const (
	StageNew            Stage = "new"
	StageContacted      Stage = "contacted"
	StageQualified      Stage = "qualified"
	StageVisitScheduled Stage = "visit_scheduled"
	StageProposalSent   Stage = "proposal_sent"
	StageNegotiation    Stage = "negotiation"
	StageWon            Stage = "won"
	StageLost           Stage = "lost"
)

// funnelStages lists the ordered funnel. Lost is a valid resting state but
// sits outside the ordering.
var funnelStages = []Stage{
	StageNew,
	StageContacted,
	StageQualified,
	StageVisitScheduled,
	StageProposalSent,
	StageNegotiation,
	StageWon,
}

var stageRank = func() map[Stage]int {
	ranks := make(map[Stage]int, len(funnelStages))
	for i, s := range funnelStages {
		ranks[s] = i
	}
	return ranks
}()

// FunnelStages returns the seven ordered funnel stages.
func FunnelStages() []Stage {
	out := make([]Stage, len(funnelStages))
	copy(out, funnelStages)
	return out
}

// AllStages returns the funnel stages followed by lost.
func AllStages() []Stage {
	return append(FunnelStages(), StageLost)
}

// IsValidStage reports whether value is one of the eight stages.
func IsValidStage(value string) bool {
	return Stage(value).Valid()
}

// Valid reports whether s is one of the eight stages.
func (s Stage) Valid() bool {
	if s == StageLost {
		return true
	}
	_, ok := stageRank[s]
	return ok
}

// ParseStage accepts only the exact stage identifiers.
func ParseStage(value string) (Stage, error) {
	s := Stage(value)
	if !s.Valid() {
		return "", fmt.Errorf("invalid pipeline stage %q", value)
	}
	return s, nil
}

// NormalizeStage maps missing or unrecognised values to new.
func NormalizeStage(value string) Stage {
	s := Stage(value)
	if !s.Valid() {
		return StageNew
	}
	return s
}

// Rank is the position in the ordered funnel, or -1 for lost.
func (s Stage) Rank() int {
	if rank, ok := stageRank[s]; ok {
		return rank
	}
	return -1
}

// AtLeast reports whether s is at or beyond other in the ordered funnel.
// Lost is never at least anything.
func (s Stage) AtLeast(other Stage) bool {
	rank := s.Rank()
	return rank >= 0 && rank >= other.Rank()
}

func (s Stage) String() string {
	return string(s)
}
