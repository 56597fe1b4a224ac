package transport

import (
	"time"

	"leadboard_backend/internal/kpi"
)

// WeeklyLogRequest creates or replaces a weekly log. WeekStart may be any day
// of the week; it is stored as that week's Monday.
type WeeklyLogRequest struct {
	UnitID         string    `json:"unitId" validate:"required,uuid"`
	WeekStart      time.Time `json:"weekStart" validate:"required"`
	AskPrice       float64   `json:"askPrice" validate:"gte=0"`
	TotalLeads     int       `json:"totalLeads" validate:"gte=0"`
	QualifiedLeads int       `json:"qualifiedLeads" validate:"gte=0"`
	Contacts       int       `json:"contacts" validate:"gte=0"`
	VisitRequests  int       `json:"visitRequests" validate:"gte=0"`
	VisitsDone     int       `json:"visitsDone" validate:"gte=0"`
	Proposals      int       `json:"proposals" validate:"gte=0"`
	BestProposal   float64   `json:"bestProposal" validate:"gte=0"`
	AvgProposal    float64   `json:"avgProposal" validate:"gte=0"`
	Objection      string    `json:"objection" validate:"max=500"`
	NextStep       string    `json:"nextStep" validate:"max=500"`
}

// CompetitorRequest creates or replaces a competitor listing.
type CompetitorRequest struct {
	ProjectID    string     `json:"projectId" validate:"required,uuid"`
	ObservedAt   *time.Time `json:"observedAt,omitempty"`
	Portal       string     `json:"portal" validate:"max=80"`
	Development  string     `json:"development" validate:"max=160"`
	Address      string     `json:"address" validate:"max=240"`
	Typology     string     `json:"typology" validate:"max=16"`
	Area         float64    `json:"area" validate:"gte=0"`
	Price        float64    `json:"price" validate:"gte=0"`
	HasGarage    bool       `json:"hasGarage"`
	HasExterior  bool       `json:"hasExterior"`
	DaysOnMarket *int       `json:"daysOnMarket,omitempty" validate:"omitempty,gte=0"`
	SourceURL    string     `json:"sourceUrl" validate:"omitempty,url,max=1000"`
}

// ImportCompetitorRequest asks the backend to read a portal listing page.
type ImportCompetitorRequest struct {
	ProjectID string `json:"projectId" validate:"required,uuid"`
	URL       string `json:"url" validate:"required,url,max=1000"`
	Save      bool   `json:"save"`
}

// TargetsRequest stores targets for a project or one of its units.
type TargetsRequest struct {
	ProjectID              string  `json:"projectId" validate:"required,uuid"`
	UnitID                 *string `json:"unitId,omitempty" validate:"omitempty,uuid"`
	MinLeadToVisitRate     int     `json:"minLeadToVisitRate" validate:"gte=0,lte=100"`
	MinVisitToProposalRate int     `json:"minVisitToProposalRate" validate:"gte=0,lte=100"`
	MinQualifiedLeads14d   int     `json:"minQualifiedLeads14d" validate:"gte=0"`
	MaxOfferGapPct         int     `json:"maxOfferGapPct" validate:"gte=0,lte=100"`
	ExpectedDaysOnMarket   int     `json:"expectedDaysOnMarket" validate:"gte=0"`
}

// Targets converts the request into kpi thresholds.
func (r TargetsRequest) Targets() kpi.Targets {
	return kpi.Targets{
		MinLeadToVisitRate:     r.MinLeadToVisitRate,
		MinVisitToProposalRate: r.MinVisitToProposalRate,
		MinQualifiedLeads14d:   r.MinQualifiedLeads14d,
		MaxOfferGapPct:         r.MaxOfferGapPct,
		ExpectedDaysOnMarket:   r.ExpectedDaysOnMarket,
	}
}

// TargetsResponse lists the project targets and unit overrides in effect.
type TargetsResponse struct {
	ProjectID string                 `json:"projectId"`
	Project   *kpi.Targets           `json:"project"`
	Units     map[string]kpi.Targets `json:"units"`
}

// WeeklyLogListResponse wraps weekly logs.
type WeeklyLogListResponse struct {
	Items []kpi.WeeklyLog `json:"items"`
}

// CompetitorListResponse wraps competitors with their summary.
type CompetitorListResponse struct {
	Items   []kpi.Competitor      `json:"items"`
	Summary kpi.CompetitorSummary `json:"summary"`
}

// UnitListResponse wraps units.
type UnitListResponse struct {
	Items []kpi.Unit `json:"items"`
}

// Snapshot is a stored weekly KPI report.
type Snapshot struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"projectId"`
	WeekStart time.Time         `json:"weekStart"`
	Report    kpi.ProjectReport `json:"report"`
	CreatedAt time.Time         `json:"createdAt"`
}

// SnapshotListResponse wraps snapshots.
type SnapshotListResponse struct {
	Items []Snapshot `json:"items"`
}

// EnqueueSnapshotResponse confirms an on-demand snapshot request.
type EnqueueSnapshotResponse struct {
	Status string `json:"status"`
}
