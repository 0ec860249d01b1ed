package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/selection"
)

const defaultCustomLabel = "Integracion personalizada"

// Line is one itemized row of a quote. Value is what the customer pays before
// margin; OriginalValue is the catalog-derived amount the override replaced.
type Line struct {
	Label             string                 `json:"label"`
	Value             float64                `json:"value"`
	OriginalValue     float64                `json:"originalValue"`
	HasOverride       bool                   `json:"hasOverride"`
	Hours             float64                `json:"hours"`
	LaborClass        catalog.LaborClass     `json:"laborClass,omitempty"`
	ImpliedHourlyRate *float64               `json:"impliedHourlyRate,omitempty"`
	Note              string                 `json:"note,omitempty"`
	Component         selection.ComponentRef `json:"componentRef"`
	Category          selection.Category     `json:"category"`
	Disabled          bool                   `json:"disabled"`
	ComponentKey      string                 `json:"componentKey"`
	OverrideKey       string                 `json:"overrideKey"`
}

// Result groups the totals of a quote and the breakdown they were derived from.
type Result struct {
	FinalSetupTotal     float64  `json:"finalSetupTotal"`
	FinalMonthlyTotal   float64  `json:"finalMonthlyTotal"`
	SetupBeforeMargin   float64  `json:"setupBeforeMargin"`
	MonthlyBeforeMargin float64  `json:"monthlyBeforeMargin"`
	SetupWithMargin     float64  `json:"setupWithMargin"`
	MonthlyWithMargin   float64  `json:"monthlyWithMargin"`
	LaborHoursWithoutAI float64  `json:"laborHoursWithoutAI"`
	LaborHoursWithAI    float64  `json:"laborHoursWithAI"`
	TotalHours          float64  `json:"totalHours"`
	PartnerTierID       string   `json:"partnerTierId"`
	ExtraSessionCost    *float64 `json:"extraSessionCost,omitempty"`
	Breakdown           []Line   `json:"breakdown"`
}

// SetupLines returns the enabled setup lines in breakdown order.
func (r Result) SetupLines() []Line {
	return r.enabled(selection.CategorySetup)
}

// MonthlyLines returns the enabled monthly lines in breakdown order.
func (r Result) MonthlyLines() []Line {
	return r.enabled(selection.CategoryMonthly)
}

func (r Result) enabled(category selection.Category) []Line {
	lines := make([]Line, 0, len(r.Breakdown))
	for _, line := range r.Breakdown {
		if line.Category == category && !line.Disabled {
			lines = append(lines, line)
		}
	}
	return lines
}

// draft is a resolved component before overrides and exclusions are applied.
type draft struct {
	label    string
	cost     decimal.Decimal
	hours    decimal.Decimal
	labor    catalog.LaborClass
	note     string
	ref      selection.ComponentRef
	category selection.Category
}

// Compute prices state against c. It never fails: unknown or unset ids resolve
// to nothing. Totals are always summed from the breakdown after overrides.
func Compute(c *catalog.Catalog, s selection.State) Result {
	drafts := resolve(c, s)

	breakdown := make([]Line, 0, len(drafts))
	for _, d := range drafts {
		breakdown = append(breakdown, buildLine(d, s))
	}

	var (
		setup, monthly              decimal.Decimal
		setupBase, monthlyBase      decimal.Decimal
		hoursWithoutAI, hoursWithAI decimal.Decimal
	)
	for i, line := range breakdown {
		if line.Disabled {
			continue
		}
		value := decimal.NewFromFloat(line.Value)
		original := decimal.NewFromFloat(line.OriginalValue)
		switch line.Category {
		case selection.CategorySetup:
			setup = setup.Add(value)
			setupBase = setupBase.Add(original)
		case selection.CategoryMonthly:
			monthly = monthly.Add(value)
			monthlyBase = monthlyBase.Add(original)
		}

		hours := drafts[i].hours
		if !hours.IsPositive() {
			continue
		}
		if line.LaborClass == catalog.LaborWithAI {
			hoursWithAI = hoursWithAI.Add(hours)
		} else {
			hoursWithoutAI = hoursWithoutAI.Add(hours)
		}
	}

	partner := c.Partner(s.PartnerTierID)
	one := decimal.NewFromInt(1)
	setupMargin := setup.Mul(one.Add(decimal.NewFromFloat(partner.SetupMarginFraction)))
	monthlyMargin := monthly.Mul(one.Add(decimal.NewFromFloat(partner.MonthlyMarginFraction)))

	return Result{
		FinalSetupTotal:     setup.InexactFloat64(),
		FinalMonthlyTotal:   monthly.InexactFloat64(),
		SetupBeforeMargin:   setupBase.InexactFloat64(),
		MonthlyBeforeMargin: monthlyBase.InexactFloat64(),
		SetupWithMargin:     setupMargin.InexactFloat64(),
		MonthlyWithMargin:   monthlyMargin.InexactFloat64(),
		LaborHoursWithoutAI: hoursWithoutAI.InexactFloat64(),
		LaborHoursWithAI:    hoursWithAI.InexactFloat64(),
		TotalHours:          hoursWithoutAI.Add(hoursWithAI).InexactFloat64(),
		PartnerTierID:       partner.ID,
		ExtraSessionCost:    extraSessionCost(c, s),
		Breakdown:           breakdown,
	}
}

func buildLine(d draft, s selection.State) Line {
	original := d.cost
	value := original
	hasOverride := false
	if override, ok := s.Override(d.category, d.ref.Type, d.ref.ID); ok {
		value = decimal.NewFromFloat(override)
		hasOverride = !value.Equal(original)
	}

	var implied *float64
	if d.hours.IsPositive() {
		rate := value.Div(d.hours).InexactFloat64()
		implied = &rate
	}

	return Line{
		Label:             d.label,
		Value:             value.InexactFloat64(),
		OriginalValue:     original.InexactFloat64(),
		HasOverride:       hasOverride,
		Hours:             d.hours.InexactFloat64(),
		LaborClass:        d.labor,
		ImpliedHourlyRate: implied,
		Note:              d.note,
		Component:         d.ref,
		Category:          d.category,
		Disabled:          s.DisabledComponentKeys.Has(d.ref.Key()),
		ComponentKey:      d.ref.Key(),
		OverrideKey:       selection.OverrideKey(d.category, d.ref.Type, d.ref.ID),
	}
}

// resolve turns the selection into drafts in breakdown order, skipping anything
// that resolves to zero cost.
func resolve(c *catalog.Catalog, s selection.State) []draft {
	var drafts []draft
	add := func(d draft) {
		if d.cost.IsPositive() {
			drafts = append(drafts, d)
		}
	}

	if impl, ok := c.Implementation(s.ImplementationID); ok {
		add(componentDraft(impl, selection.TypeImplementation))
	}
	for _, extra := range c.ImplementationExtras {
		if s.SelectedExtraIDs.Has(extra.ID) {
			add(componentDraft(extra, selection.TypeImplementationExtra))
		}
	}
	for _, addon := range c.Addons {
		if s.SelectedAddonIDs.Has(addon.ID) {
			add(componentDraft(addon, selection.TypeAddon))
		}
	}

	if tier, ok := c.Integration(s.IntegrationTierID); ok && !c.IsNoneIntegration(tier.ID) {
		for _, d := range integrationDrafts(c, tier, s.IntegrationLaborClass) {
			add(d)
		}
	}

	for _, ci := range s.CustomIntegrations {
		if d, ok := customDraft(c, ci); ok {
			add(d)
		}
	}

	if pkg, ok := c.SessionPackage(s.SessionPackageID); ok {
		add(draft{
			label:    pkg.Label,
			cost:     decimal.NewFromFloat(pkg.MonthlyCost),
			ref:      selection.ComponentRef{Type: selection.TypeSessionPackage, ID: pkg.ID},
			category: selection.CategoryMonthly,
		})
	}
	if plan, ok := c.BIPlan(s.BIPlanID); ok {
		add(draft{
			label:    plan.Label,
			cost:     decimal.NewFromFloat(plan.MonthlyCost),
			ref:      selection.ComponentRef{Type: selection.TypeBIPlan, ID: plan.ID},
			category: selection.CategoryMonthly,
		})
	}
	return drafts
}

func componentDraft(item catalog.Component, t selection.ComponentType) draft {
	labor := item.LaborClass
	if !labor.Valid() {
		labor = catalog.LaborWithoutAI
	}
	return draft{
		label:    item.Name,
		cost:     decimal.NewFromFloat(item.SetupCost),
		hours:    decimal.NewFromFloat(item.LaborHours),
		labor:    labor,
		ref:      selection.ComponentRef{Type: t, ID: item.ID},
		category: selection.CategorySetup,
	}
}

// integrationDrafts yields the setup line and, for tiers with a recurring fee,
// the monthly line. Both share the tier's component key.
func integrationDrafts(c *catalog.Catalog, tier catalog.IntegrationTier, labor catalog.LaborClass) []draft {
	if !labor.Valid() {
		labor = catalog.LaborWithoutAI
	}
	ref := selection.ComponentRef{Type: selection.TypeIntegration, ID: tier.ID}
	hours := decimal.NewFromFloat(tier.BaseHours)

	setup := draft{
		label:    tier.Label,
		hours:    hours,
		labor:    labor,
		ref:      ref,
		category: selection.CategorySetup,
	}
	if tier.FixedCost != nil {
		setup.cost = decimal.NewFromFloat(*tier.FixedCost)
		setup.note = "Costo fijo"
	} else {
		setup.cost = hours.Mul(decimal.NewFromFloat(c.Rates.For(labor)))
	}

	drafts := []draft{setup}
	if tier.MonthlyCost > 0 {
		drafts = append(drafts, draft{
			label:    tier.Label,
			cost:     decimal.NewFromFloat(tier.MonthlyCost),
			note:     "Mensual",
			ref:      ref,
			category: selection.CategoryMonthly,
		})
	}
	return drafts
}

// customDraft resolves a user-authored line. Drafts with no hours and no manual
// price are dropped.
func customDraft(c *catalog.Catalog, ci selection.CustomIntegration) (draft, bool) {
	hours := decimal.Zero
	if ci.Hours != nil {
		hours = decimal.NewFromFloat(*ci.Hours)
	}
	manual := ci.PriceOverride != nil && *ci.PriceOverride > 0
	if !hours.IsPositive() && !manual {
		return draft{}, false
	}

	labor := ci.LaborClass
	if !labor.Valid() {
		labor = catalog.LaborWithoutAI
	}
	label := strings.TrimSpace(ci.Name)
	if label == "" {
		label = defaultCustomLabel
	}

	d := draft{
		label:    label,
		hours:    hours,
		labor:    labor,
		ref:      selection.ComponentRef{Type: selection.TypeCustomIntegration, ID: ci.ID},
		category: selection.CategorySetup,
	}
	if manual {
		d.cost = decimal.NewFromFloat(*ci.PriceOverride)
		d.note = "Precio manual"
		return d, true
	}

	rate := c.Rates.For(labor)
	if ci.Rate != nil && *ci.Rate > 0 {
		rate = *ci.Rate
	}
	d.cost = hours.Mul(decimal.NewFromFloat(rate))
	d.note = "Horas x tarifa"
	return d, true
}

func extraSessionCost(c *catalog.Catalog, s selection.State) *float64 {
	pkg, ok := c.SessionPackage(s.SessionPackageID)
	if !ok || pkg.ExtraSessionCost <= 0 {
		return nil
	}
	if s.IsDisabled(selection.TypeSessionPackage, pkg.ID) {
		return nil
	}
	cost := pkg.ExtraSessionCost
	return &cost
}
