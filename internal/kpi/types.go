// Package kpi computes the commercial-control indicators for a project or a
// single unit: windowed lead counts, conversion rates, best offer, status
// classification and the funnel projection. Everything here is a pure
// function of its inputs.
package kpi

import (
	"time"

	"leadboard_backend/internal/pipeline/domain"
)

// Status is the recommended pricing action for a unit.
type Status string

const (
	StatusKeep   Status = "MANTER"
	StatusWatch  Status = "VIGIAR"
	StatusReduce Status = "REDUZIR"
	StatusNoData Status = "SEM_DADOS"
)

// Unit is a property listed for sale.
type Unit struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	Code      string     `json:"code"`
	Typology  string     `json:"typology"`
	AskPrice  float64    `json:"askPrice"`
	ListedAt  *time.Time `json:"listedAt,omitempty"`
}

// WeeklyLog is the manual weekly commercial record for a unit.
type WeeklyLog struct {
	ID             string    `json:"id"`
	UnitID         string    `json:"unitId"`
	WeekStart      time.Time `json:"weekStart"`
	AskPrice       float64   `json:"askPrice"`
	TotalLeads     int       `json:"totalLeads"`
	QualifiedLeads int       `json:"qualifiedLeads"`
	Contacts       int       `json:"contacts"`
	VisitRequests  int       `json:"visitRequests"`
	VisitsDone     int       `json:"visitsDone"`
	Proposals      int       `json:"proposals"`
	BestProposal   float64   `json:"bestProposal"`
	AvgProposal    float64   `json:"avgProposal"`
	Objection      string    `json:"objection"`
	NextStep       string    `json:"nextStep"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Competitor is a comparable listing observed on a portal.
type Competitor struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	ObservedAt   time.Time `json:"observedAt"`
	Portal       string    `json:"portal"`
	Development  string    `json:"development"`
	Address      string    `json:"address"`
	Typology     string    `json:"typology"`
	Area         float64   `json:"area"`
	Price        float64   `json:"price"`
	PricePerM2   float64   `json:"pricePerM2"`
	HasGarage    bool      `json:"hasGarage"`
	HasExterior  bool      `json:"hasExterior"`
	DaysOnMarket *int      `json:"daysOnMarket,omitempty"`
	SourceURL    string    `json:"sourceUrl"`
}

// Targets are the thresholds a unit is judged against. A zero threshold is
// not enforced.
type Targets struct {
	MinLeadToVisitRate     int `json:"minLeadToVisitRate" yaml:"minLeadToVisitRate"`
	MinVisitToProposalRate int `json:"minVisitToProposalRate" yaml:"minVisitToProposalRate"`
	MinQualifiedLeads14d   int `json:"minQualifiedLeads14d" yaml:"minQualifiedLeads14d"`
	MaxOfferGapPct         int `json:"maxOfferGapPct" yaml:"maxOfferGapPct"`
	ExpectedDaysOnMarket   int `json:"expectedDaysOnMarket" yaml:"expectedDaysOnMarket"`
}

// Metrics are the raw indicators.
type Metrics struct {
	TotalLeads          int                  `json:"totalLeads"`
	Leads14d            int                  `json:"leads14d"`
	QualifiedLeads14d   int                  `json:"qualifiedLeads14d"`
	Visits14d           int                  `json:"visits14d"`
	Proposals30d        int                  `json:"proposals30d"`
	BestOffer           float64              `json:"bestOffer"`
	LeadToVisitRate     int                  `json:"leadToVisitRate"`
	VisitToProposalRate int                  `json:"visitToProposalRate"`
	LeadsByStage        map[domain.Stage]int `json:"leadsByStage"`
}

// CompetitorSummary aggregates the observed comparables.
type CompetitorSummary struct {
	Count                int     `json:"count"`
	AvgPricePerM2        float64 `json:"avgPricePerM2"`
	SameTypologyCount    int     `json:"sameTypologyCount"`
	SameTypologyAvgPerM2 float64 `json:"sameTypologyAvgPricePerM2"`
	SameTypologyAvgPrice float64 `json:"sameTypologyAvgPrice"`
	AvgDaysOnMarket      float64 `json:"avgDaysOnMarket"`
}

// Report is the indicator set for one scope with its classification.
type Report struct {
	Metrics
	GapVsAsk     *int              `json:"gapVsAsk,omitempty"`
	DaysOnMarket *int              `json:"daysOnMarket,omitempty"`
	Status       Status            `json:"status"`
	Reasons      []string          `json:"reasons"`
	LatestLog    *WeeklyLog        `json:"latestLog,omitempty"`
	Competitors  CompetitorSummary `json:"competitors"`
}

// UnitReport is a Report scoped to one unit.
type UnitReport struct {
	UnitID   string  `json:"unitId"`
	Code     string  `json:"code"`
	Typology string  `json:"typology"`
	AskPrice float64 `json:"askPrice"`
	Report
}

// ProjectReport is the project-wide report with its per-unit breakdown.
type ProjectReport struct {
	ProjectID   string       `json:"projectId"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Targets     *Targets     `json:"targets,omitempty"`
	Overall     Report       `json:"overall"`
	Units       []UnitReport `json:"units"`
}
