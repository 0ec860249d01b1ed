package pricing

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/heynow-quoter/internal/selection"
)

// RateEntry is an enabled setup line that carries both hours and an hourly rate.
type RateEntry struct {
	Label string  `json:"label"`
	Rate  float64 `json:"rate"`
	Hours float64 `json:"hours"`
}

// RateAnalysis summarises the hourly rates behind a breakdown.
type RateAnalysis struct {
	Entries         []RateEntry `json:"entries"`
	DistinctRates   []float64   `json:"distinctRates"`
	Mixed           bool        `json:"mixed"`
	WeightedAverage float64     `json:"weightedAverage"`
	Min             float64     `json:"min"`
	Max             float64     `json:"max"`
}

// AnalyzeRates inspects the enabled setup lines of a breakdown. Rates are
// compared at cent precision; the weighted average is 0 when no line has hours.
func AnalyzeRates(breakdown []Line) RateAnalysis {
	analysis := RateAnalysis{
		Entries:       make([]RateEntry, 0),
		DistinctRates: make([]float64, 0),
	}

	var weighted, totalHours decimal.Decimal
	var distinct []decimal.Decimal
	for _, line := range breakdown {
		if line.Disabled || line.Category != selection.CategorySetup {
			continue
		}
		if line.ImpliedHourlyRate == nil || line.Hours <= 0 {
			continue
		}

		rate := decimal.NewFromFloat(*line.ImpliedHourlyRate)
		hours := decimal.NewFromFloat(line.Hours)
		weighted = weighted.Add(rate.Mul(hours))
		totalHours = totalHours.Add(hours)

		analysis.Entries = append(analysis.Entries, RateEntry{
			Label: line.Label,
			Rate:  *line.ImpliedHourlyRate,
			Hours: line.Hours,
		})

		cents := rate.Round(2)
		if !slices.ContainsFunc(distinct, cents.Equal) {
			distinct = append(distinct, cents)
		}
	}

	if len(distinct) == 0 {
		return analysis
	}

	slices.SortFunc(distinct, func(a, b decimal.Decimal) int { return a.Cmp(b) })
	for _, rate := range distinct {
		analysis.DistinctRates = append(analysis.DistinctRates, rate.InexactFloat64())
	}
	analysis.Mixed = len(distinct) > 1
	analysis.Min = distinct[0].InexactFloat64()
	analysis.Max = distinct[len(distinct)-1].InexactFloat64()
	if totalHours.IsPositive() {
		analysis.WeightedAverage = weighted.Div(totalHours).InexactFloat64()
	}
	return analysis
}
