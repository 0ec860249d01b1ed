package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/selection"
)

const (
	taxNote      = "+ Impuestos"
	emptySection = "Sin componentes en esta sección"
)

// Sheet is the customer-facing view of a quote: every amount already carries
// the partner margin.
type Sheet struct {
	Date             time.Time
	SetupTotal       float64
	MonthlyTotal     float64
	IncludedHours    float64
	AdditionalHour   float64
	SetupLines       []SheetLine
	MonthlyLines     []SheetLine
	ExtraSessionCost *float64
	Rates            pricing.RateAnalysis
}

type SheetLine struct {
	Label string
	Value float64
}

// NewSheet derives the proposal sheet for result. Disabled lines are left out.
func NewSheet(c *catalog.Catalog, result pricing.Result, now time.Time) Sheet {
	partner := c.Partner(result.PartnerTierID)
	return Sheet{
		Date:             now,
		SetupTotal:       result.SetupWithMargin,
		MonthlyTotal:     result.MonthlyWithMargin,
		IncludedHours:    result.TotalHours,
		AdditionalHour:   c.Rates.For(catalog.LaborWithoutAI),
		SetupLines:       sheetLines(result.SetupLines(), partner.SetupMarginFraction),
		MonthlyLines:     sheetLines(result.MonthlyLines(), partner.MonthlyMarginFraction),
		ExtraSessionCost: result.ExtraSessionCost,
		Rates:            pricing.AnalyzeRates(result.Breakdown),
	}
}

func sheetLines(lines []pricing.Line, margin float64) []SheetLine {
	multiplier := decimal.NewFromInt(1).Add(decimal.NewFromFloat(margin))
	out := make([]SheetLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, SheetLine{
			Label: line.Label,
			Value: decimal.NewFromFloat(line.Value).Mul(multiplier).InexactFloat64(),
		})
	}
	return out
}

// Text writes the plain-text proposal sheet for s priced against c.
func Text(w io.Writer, c *catalog.Catalog, s selection.State, now time.Time) error {
	return WriteSheet(w, NewSheet(c, pricing.Compute(c, s), now))
}

// WriteSheet renders sheet as aligned plain text.
func WriteSheet(w io.Writer, sheet Sheet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Cotizacion HeyNow\t%s\n\n", sheet.Date.Format("02/01/2006"))
	fmt.Fprintf(tw, "Pago único\t%s\t%s\n", Money(sheet.SetupTotal), taxNote)
	fmt.Fprintf(tw, "Pago mensual\t%s\t%s\n", Money(sheet.MonthlyTotal), taxNote)
	fmt.Fprintf(tw, "Horas incluidas\t%s\tHora adicional: %s/h %s\n", Hours(sheet.IncludedHours), Money(sheet.AdditionalHour), taxNote)

	writeSection(tw, "Costos de implementación - Pago único al inicio del proyecto", sheet.SetupLines)
	writeSection(tw, "Costos de uso - Pago mensual", sheet.MonthlyLines)

	extra := "-"
	if sheet.ExtraSessionCost != nil {
		extra = MoneyPrecise(*sheet.ExtraSessionCost) + "/sesión"
	}
	fmt.Fprintf(tw, "  Sesión adicional\t%s\t\n", extra)

	if len(sheet.Rates.Entries) > 0 {
		fmt.Fprintf(tw, "\n%s\n", strings.ToUpper("Tarifas por hora"))
		for _, entry := range sheet.Rates.Entries {
			fmt.Fprintf(tw, "  %s\t%s/h\t%s\n", entry.Label, MoneyPrecise(entry.Rate), Hours(entry.Hours))
		}
		if sheet.Rates.Mixed {
			fmt.Fprintf(tw, "  Promedio ponderado\t%s/h\t%s - %s\n",
				MoneyPrecise(sheet.Rates.WeightedAverage), MoneyPrecise(sheet.Rates.Min), MoneyPrecise(sheet.Rates.Max))
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write proposal sheet: %w", err)
	}
	return nil
}

func writeSection(w io.Writer, title string, lines []SheetLine) {
	fmt.Fprintf(w, "\n%s\n", strings.ToUpper(title))
	if len(lines) == 0 {
		fmt.Fprintf(w, "  %s\t\t\n", emptySection)
		return
	}
	for _, line := range lines {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", line.Label, Money(line.Value), taxNote)
	}
}
