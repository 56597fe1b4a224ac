package kpi

import (
	"math"
	"strings"
)

// PricePerM2 returns price / area rounded to whole euros, or 0 without area.
func PricePerM2(price, area float64) float64 {
	if area <= 0 || price <= 0 {
		return 0
	}
	return math.Round(price / area)
}

// SummarizeCompetitors averages the comparables. typology narrows the
// same-typology figures; empty skips them.
func SummarizeCompetitors(comps []Competitor, typology string) CompetitorSummary {
	var (
		summary      CompetitorSummary
		perM2Sum     float64
		perM2N       float64
		samePerM2Sum float64
		samePerM2N   float64
		samePriceSum float64
		daysSum      float64
		daysCount    float64
	)
	summary.Count = len(comps)

	for _, comp := range comps {
		perM2 := comp.PricePerM2
		if perM2 <= 0 {
			perM2 = PricePerM2(comp.Price, comp.Area)
		}
		if perM2 > 0 {
			perM2Sum += perM2
			perM2N++
		}
		if comp.DaysOnMarket != nil {
			daysSum += float64(*comp.DaysOnMarket)
			daysCount++
		}
		if typology == "" || !strings.EqualFold(strings.TrimSpace(comp.Typology), strings.TrimSpace(typology)) {
			continue
		}
		summary.SameTypologyCount++
		samePriceSum += comp.Price
		if perM2 > 0 {
			samePerM2Sum += perM2
			samePerM2N++
		}
	}

	summary.AvgPricePerM2 = average(perM2Sum, perM2N)
	summary.SameTypologyAvgPerM2 = average(samePerM2Sum, samePerM2N)
	summary.SameTypologyAvgPrice = average(samePriceSum, float64(summary.SameTypologyCount))
	summary.AvgDaysOnMarket = average(daysSum, daysCount)
	return summary
}

func average(sum, n float64) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(sum / n)
}
