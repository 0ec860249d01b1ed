package catalog

// LaborClass selects the hourly rate and the hour bucket a component is billed against.
type LaborClass string

const (
	LaborWithoutAI LaborClass = "withoutAI"
	LaborWithAI    LaborClass = "withAI"
)

// Valid reports whether c is one of the known labor classes.
func (c LaborClass) Valid() bool {
	return c == LaborWithoutAI || c == LaborWithAI
}

// Rates is the hourly rate table keyed by labor class.
type Rates struct {
	WithoutAI float64 `json:"withoutAI" yaml:"withoutAI"`
	WithAI    float64 `json:"withAI" yaml:"withAI"`
}

// For returns the hourly rate for c. Unknown classes bill at the withoutAI rate.
func (r Rates) For(c LaborClass) float64 {
	if c == LaborWithAI {
		return r.WithAI
	}
	return r.WithoutAI
}

// Component is a priced setup item: implementations, implementation extras and add-ons.
type Component struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	SetupCost  float64    `json:"setupCost" yaml:"setupCost"`
	LaborHours float64    `json:"laborHours" yaml:"laborHours"`
	LaborClass LaborClass `json:"laborClass" yaml:"laborClass"`
}

// IntegrationTier is a catalog integration package. FixedCost, when set, replaces
// baseHours x rate as the setup price.
type IntegrationTier struct {
	ID          string   `json:"id" yaml:"id"`
	Label       string   `json:"label" yaml:"label"`
	Cases       int      `json:"cases" yaml:"cases"`
	BaseHours   float64  `json:"baseHours" yaml:"baseHours"`
	FixedCost   *float64 `json:"fixedCost,omitempty" yaml:"fixedCost,omitempty"`
	MonthlyCost float64  `json:"monthlyCost,omitempty" yaml:"monthlyCost,omitempty"`
}

type SessionModel struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`
}

// SessionPackage is a monthly bundle of conversational sessions for one session model.
type SessionPackage struct {
	ID               string  `json:"id" yaml:"id"`
	ModelID          string  `json:"modelId" yaml:"modelId"`
	Label            string  `json:"label" yaml:"label"`
	MonthlyCost      float64 `json:"monthlyCost" yaml:"monthlyCost"`
	ExtraSessionCost float64 `json:"extraSessionCost" yaml:"extraSessionCost"`
}

type BIPlan struct {
	ID          string  `json:"id" yaml:"id"`
	Label       string  `json:"label" yaml:"label"`
	MonthlyCost float64 `json:"monthlyCost" yaml:"monthlyCost"`
}

// PartnerTier carries the markup applied on top of post-override totals.
type PartnerTier struct {
	ID                    string  `json:"id" yaml:"id"`
	Name                  string  `json:"name" yaml:"name"`
	SetupMarginFraction   float64 `json:"setupMarginFraction" yaml:"setupMarginFraction"`
	MonthlyMarginFraction float64 `json:"monthlyMarginFraction" yaml:"monthlyMarginFraction"`
}

// Catalog is the static price list. It is loaded once and never mutated.
type Catalog struct {
	Version              string            `json:"version" yaml:"version"`
	Currency             string            `json:"currency" yaml:"currency"`
	NoneIntegrationID    string            `json:"noneIntegrationId" yaml:"noneIntegrationId"`
	Rates                Rates             `json:"rates" yaml:"rates"`
	Implementations      []Component       `json:"implementations" yaml:"implementations"`
	ImplementationExtras []Component       `json:"implementationExtras" yaml:"implementationExtras"`
	Addons               []Component       `json:"addons" yaml:"addons"`
	Integrations         []IntegrationTier `json:"integrations" yaml:"integrations"`
	Partners             []PartnerTier     `json:"partners" yaml:"partners"`
	SessionModels        []SessionModel    `json:"sessionModels" yaml:"sessionModels"`
	SessionPackages      []SessionPackage  `json:"sessionPackages" yaml:"sessionPackages"`
	BIPlans              []BIPlan          `json:"biPlans" yaml:"biPlans"`
}

func findComponent(items []Component, id string) (Component, bool) {
	if id == "" {
		return Component{}, false
	}
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return Component{}, false
}

func (c *Catalog) Implementation(id string) (Component, bool) {
	return findComponent(c.Implementations, id)
}

func (c *Catalog) Extra(id string) (Component, bool) {
	return findComponent(c.ImplementationExtras, id)
}

func (c *Catalog) Addon(id string) (Component, bool) {
	return findComponent(c.Addons, id)
}

func (c *Catalog) Integration(id string) (IntegrationTier, bool) {
	if id == "" {
		return IntegrationTier{}, false
	}
	for _, tier := range c.Integrations {
		if tier.ID == id {
			return tier, true
		}
	}
	return IntegrationTier{}, false
}

func (c *Catalog) SessionModel(id string) (SessionModel, bool) {
	if id == "" {
		return SessionModel{}, false
	}
	for _, model := range c.SessionModels {
		if model.ID == id {
			return model, true
		}
	}
	return SessionModel{}, false
}

func (c *Catalog) SessionPackage(id string) (SessionPackage, bool) {
	if id == "" {
		return SessionPackage{}, false
	}
	for _, pkg := range c.SessionPackages {
		if pkg.ID == id {
			return pkg, true
		}
	}
	return SessionPackage{}, false
}

// PackagesForModel lists the session packages offered for a session model, in catalog order.
func (c *Catalog) PackagesForModel(modelID string) []SessionPackage {
	packages := make([]SessionPackage, 0)
	for _, pkg := range c.SessionPackages {
		if pkg.ModelID == modelID {
			packages = append(packages, pkg)
		}
	}
	return packages
}

func (c *Catalog) BIPlan(id string) (BIPlan, bool) {
	if id == "" {
		return BIPlan{}, false
	}
	for _, plan := range c.BIPlans {
		if plan.ID == id {
			return plan, true
		}
	}
	return BIPlan{}, false
}

// Partner returns the tier with the given id, falling back to the first tier and
// then to a zero-margin tier. It never fails.
func (c *Catalog) Partner(id string) PartnerTier {
	for _, tier := range c.Partners {
		if tier.ID == id {
			return tier
		}
	}
	if len(c.Partners) > 0 {
		return c.Partners[0]
	}
	return PartnerTier{}
}

// DefaultPartnerID is the tier selected at session start.
func (c *Catalog) DefaultPartnerID() string {
	if len(c.Partners) == 0 {
		return ""
	}
	return c.Partners[0].ID
}

// IsNoneIntegration reports whether id names the "no integrations" sentinel tier.
func (c *Catalog) IsNoneIntegration(id string) bool {
	none := c.NoneIntegrationID
	if none == "" {
		none = defaultNoneIntegrationID
	}
	return id == none
}
