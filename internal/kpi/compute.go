package kpi

import (
	"math"
	"time"

	"leadboard_backend/internal/pipeline/domain"
)

const (
	shortWindow = 14 * 24 * time.Hour
	longWindow  = 30 * 24 * time.Hour
)

// Input is everything Compute needs. When Unit is set, leads and weekly logs
// are narrowed to that unit.
type Input struct {
	Leads       []domain.Lead
	Unit        *Unit
	WeeklyLogs  []WeeklyLog
	Competitors []Competitor
	Targets     *Targets
	Now         time.Time
}

// ProjectInput is the input of ComputeProject. UnitTargets override Targets
// for the listed unit ids.
type ProjectInput struct {
	ProjectID   string
	Leads       []domain.Lead
	Units       []Unit
	WeeklyLogs  []WeeklyLog
	Competitors []Competitor
	Targets     *Targets
	UnitTargets map[string]Targets
	Now         time.Time
}

// Compute builds the report for the given scope.
func Compute(in Input) Report {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	leads := in.Leads
	logs := in.WeeklyLogs
	typology := ""
	if in.Unit != nil {
		leads = leadsForUnit(leads, in.Unit.ID)
		logs = logsForUnit(logs, in.Unit.ID)
		typology = in.Unit.Typology
	}

	report := Report{
		Metrics:     computeMetrics(leads, logs, now),
		LatestLog:   latestLog(logs, now),
		Competitors: SummarizeCompetitors(in.Competitors, typology),
	}

	if in.Unit != nil {
		ask := in.Unit.AskPrice
		if ask <= 0 && report.LatestLog != nil {
			ask = report.LatestLog.AskPrice
		}
		report.GapVsAsk = GapVsAsk(report.BestOffer, ask)
		report.DaysOnMarket = daysOnMarket(in.Unit, now)
	}

	report.Status, report.Reasons = classify(signalsFor(report, leads, logs, now), in.Targets)
	return report
}

// ComputeProject builds the overall report plus one report per unit.
func ComputeProject(in ProjectInput) ProjectReport {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	out := ProjectReport{
		ProjectID:   in.ProjectID,
		GeneratedAt: now,
		Targets:     in.Targets,
		Overall: Compute(Input{
			Leads:       in.Leads,
			WeeklyLogs:  in.WeeklyLogs,
			Competitors: in.Competitors,
			Targets:     in.Targets,
			Now:         now,
		}),
		Units: make([]UnitReport, 0, len(in.Units)),
	}

	for i := range in.Units {
		unit := in.Units[i]
		targets := in.Targets
		if override, ok := in.UnitTargets[unit.ID]; ok {
			targets = &override
		}
		out.Units = append(out.Units, UnitReport{
			UnitID:   unit.ID,
			Code:     unit.Code,
			Typology: unit.Typology,
			AskPrice: unit.AskPrice,
			Report: Compute(Input{
				Leads:       in.Leads,
				Unit:        &unit,
				WeeklyLogs:  in.WeeklyLogs,
				Competitors: in.Competitors,
				Targets:     targets,
				Now:         now,
			}),
		})
	}
	return out
}

func computeMetrics(leads []domain.Lead, logs []WeeklyLog, now time.Time) Metrics {
	m := Metrics{
		TotalLeads:   len(leads),
		LeadsByStage: ProjectFunnel(leads).Counts(),
	}

	for _, lead := range leads {
		if lead.ProposalValue != nil && *lead.ProposalValue > m.BestOffer {
			m.BestOffer = *lead.ProposalValue
		}
		if lead.Stage == domain.StageLost {
			if within(lead.CreatedAt, now, shortWindow) {
				m.Leads14d++
			}
			continue
		}

		if within(lead.CreatedAt, now, shortWindow) {
			m.Leads14d++
			if lead.Stage.AtLeast(domain.StageQualified) {
				m.QualifiedLeads14d++
			}
		}
		activity := lead.ActivityAt()
		if lead.Stage.AtLeast(domain.StageVisitScheduled) && within(activity, now, shortWindow) {
			m.Visits14d++
		}
		if lead.Stage.AtLeast(domain.StageProposalSent) && within(activity, now, longWindow) {
			m.Proposals30d++
		}
	}

	for _, log := range logs {
		if within(log.WeekStart, now, longWindow) && log.BestProposal > m.BestOffer {
			m.BestOffer = log.BestProposal
		}
	}

	m.LeadToVisitRate = Rate(m.Visits14d, m.QualifiedLeads14d)
	m.VisitToProposalRate = Rate(m.Proposals30d, m.Visits14d)
	return m
}

// Rate returns numerator / max(1, denominator) as a whole percentage clamped
// to [0, 100].
func Rate(numerator, denominator int) int {
	if denominator < 1 {
		denominator = 1
	}
	pct := int(math.Round(float64(numerator) / float64(denominator) * 100))
	return min(max(pct, 0), 100)
}

// GapVsAsk is the signed best-offer distance from the ask price, in whole
// percent. Nil when either value is missing.
func GapVsAsk(bestOffer, askPrice float64) *int {
	if bestOffer <= 0 || askPrice <= 0 {
		return nil
	}
	gap := int(math.Round((bestOffer - askPrice) / askPrice * 100))
	return &gap
}

func daysOnMarket(unit *Unit, now time.Time) *int {
	if unit.ListedAt == nil || unit.ListedAt.After(now) {
		return nil
	}
	days := int(now.Sub(*unit.ListedAt).Hours() / 24)
	return &days
}

func within(t, now time.Time, window time.Duration) bool {
	if t.IsZero() || t.After(now) {
		return false
	}
	return !t.Before(now.Add(-window))
}

func leadsForUnit(leads []domain.Lead, unitID string) []domain.Lead {
	out := make([]domain.Lead, 0, len(leads))
	for _, lead := range leads {
		if lead.BelongsToUnit(unitID) {
			out = append(out, lead)
		}
	}
	return out
}

func logsForUnit(logs []WeeklyLog, unitID string) []WeeklyLog {
	out := make([]WeeklyLog, 0, len(logs))
	for _, log := range logs {
		if log.UnitID == unitID {
			out = append(out, log)
		}
	}
	return out
}

func latestLog(logs []WeeklyLog, now time.Time) *WeeklyLog {
	var latest *WeeklyLog
	for i := range logs {
		if logs[i].WeekStart.After(now) {
			continue
		}
		if latest == nil || logs[i].WeekStart.After(latest.WeekStart) {
			latest = &logs[i]
		}
	}
	if latest == nil {
		return nil
	}
	out := *latest
	return &out
}
