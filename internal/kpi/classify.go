package kpi

import (
	"time"

	"leadboard_backend/internal/pipeline/domain"
)

const (
	reasonNoLeads            = "no_leads"
	reasonLeadToVisit        = "lead_to_visit_below_target"
	reasonVisitToProposal    = "visit_to_proposal_below_target"
	reasonQualifiedVolume    = "qualified_leads_below_minimum"
	reasonOfferGap           = "offer_gap_above_limit"
	reasonOfferGapSevere     = "offer_gap_far_above_limit"
	reasonNoQualifiedOrOffer = "no_qualified_leads_and_no_offer"
	reasonConversionCollapse = "conversion_far_below_target"
	reasonStaleListing       = "days_on_market_above_expected"
	reasonQualifiedActivity  = "qualified_activity_in_window"
	reasonContactOnly        = "contacts_without_qualified_activity"
	reasonNoActivity         = "no_activity_in_window"
)

// signals are the classification inputs derived from a report.
type signals struct {
	totalLeads          int
	qualified14d        int
	visits14d           int
	contacts14d         int
	bestOffer           float64
	leadToVisitRate     int
	visitToProposalRate int
	gapVsAsk            *int
	daysOnMarket        *int
}

func signalsFor(r Report, leads []domain.Lead, logs []WeeklyLog, now time.Time) signals {
	s := signals{
		totalLeads:          r.TotalLeads,
		qualified14d:        r.QualifiedLeads14d,
		visits14d:           r.Visits14d,
		bestOffer:           r.BestOffer,
		leadToVisitRate:     r.LeadToVisitRate,
		visitToProposalRate: r.VisitToProposalRate,
		gapVsAsk:            r.GapVsAsk,
		daysOnMarket:        r.DaysOnMarket,
	}
	for _, lead := range leads {
		if lead.Stage.AtLeast(domain.StageContacted) && within(lead.ActivityAt(), now, shortWindow) {
			s.contacts14d++
		}
	}
	for _, log := range logs {
		if within(log.WeekStart, now, shortWindow) {
			s.contacts14d += log.Contacts
		}
	}
	return s
}

// classify returns the status and the reasons that led to it.
func classify(s signals, targets *Targets) (Status, []string) {
	if s.totalLeads == 0 {
		return StatusNoData, []string{reasonNoLeads}
	}
	if targets == nil {
		return classifyByActivity(s)
	}

	var misses []string
	if s.leadToVisitRate < targets.MinLeadToVisitRate {
		misses = append(misses, reasonLeadToVisit)
	}
	if s.visitToProposalRate < targets.MinVisitToProposalRate {
		misses = append(misses, reasonVisitToProposal)
	}
	if s.qualified14d < targets.MinQualifiedLeads14d {
		misses = append(misses, reasonQualifiedVolume)
	}
	if targets.MaxOfferGapPct > 0 && s.gapVsAsk != nil && *s.gapVsAsk < -targets.MaxOfferGapPct {
		misses = append(misses, reasonOfferGap)
	}

	var severe []string
	if s.qualified14d == 0 && s.bestOffer <= 0 {
		severe = append(severe, reasonNoQualifiedOrOffer)
	}
	if targets.MaxOfferGapPct > 0 && s.gapVsAsk != nil && *s.gapVsAsk < -2*targets.MaxOfferGapPct {
		severe = append(severe, reasonOfferGapSevere)
	}
	if targets.MinLeadToVisitRate > 0 && targets.MinVisitToProposalRate > 0 &&
		2*s.leadToVisitRate < targets.MinLeadToVisitRate &&
		2*s.visitToProposalRate < targets.MinVisitToProposalRate {
		severe = append(severe, reasonConversionCollapse)
	}
	if targets.ExpectedDaysOnMarket > 0 && s.daysOnMarket != nil &&
		*s.daysOnMarket > targets.ExpectedDaysOnMarket && len(misses) > 0 {
		severe = append(severe, reasonStaleListing)
	}

	switch {
	case len(severe) > 0:
		return StatusReduce, append(severe, misses...)
	case len(misses) == 0:
		return StatusKeep, []string{}
	default:
		return StatusWatch, misses
	}
}

// classifyByActivity is used when no targets are configured.
func classifyByActivity(s signals) (Status, []string) {
	switch {
	case s.qualified14d > 0 || s.visits14d > 0:
		return StatusKeep, []string{reasonQualifiedActivity}
	case s.contacts14d > 0:
		return StatusWatch, []string{reasonContactOnly}
	default:
		return StatusReduce, []string{reasonNoActivity}
	}
}
