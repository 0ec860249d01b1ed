package selection

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
)

// IDSet is a set of ids. It encodes as a sorted JSON array so snapshots are stable.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	ids := s.Sorted()
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

// CustomIntegration is a user-authored setup line. It is billed at PriceOverride
// when set, otherwise Hours x (Rate or the labor-class rate).
type CustomIntegration struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Hours         *float64           `json:"hours"`
	LaborClass    catalog.LaborClass `json:"laborClass"`
	Rate          *float64           `json:"rate"`
	PriceOverride *float64           `json:"priceOverride"`
}

func (ci CustomIntegration) clone() CustomIntegration {
	ci.Hours = cloneAmount(ci.Hours)
	ci.Rate = cloneAmount(ci.Rate)
	ci.PriceOverride = cloneAmount(ci.PriceOverride)
	return ci
}

// State is everything the user picked. Treat it as a value: Apply returns a new
// State and never modifies the one it was given.
type State struct {
	ImplementationID      string              `json:"implementationId"`
	SelectedExtraIDs      IDSet               `json:"selectedExtraIds"`
	SelectedAddonIDs      IDSet               `json:"selectedAddonIds"`
	IntegrationTierID     string              `json:"integrationTierId"`
	IntegrationLaborClass catalog.LaborClass  `json:"integrationLaborClass"`
	SessionModelID        string              `json:"sessionModelId"`
	SessionPackageID      string              `json:"sessionPackageId"`
	BIPlanID              string              `json:"biPlanId"`
	PartnerTierID         string              `json:"partnerTierId"`
	CustomIntegrations    []CustomIntegration `json:"customIntegrations"`
	DisabledComponentKeys IDSet               `json:"disabledComponentKeys"`
	PriceOverrides        map[string]float64  `json:"priceOverrides"`
}

// New returns the session-start state for c.
func New(c *catalog.Catalog) State {
	return State{
		SelectedExtraIDs:      NewIDSet(),
		SelectedAddonIDs:      NewIDSet(),
		IntegrationTierID:     c.NoneIntegrationID,
		IntegrationLaborClass: catalog.LaborWithoutAI,
		PartnerTierID:         c.DefaultPartnerID(),
		CustomIntegrations:    []CustomIntegration{},
		DisabledComponentKeys: NewIDSet(),
		PriceOverrides:        map[string]float64{},
	}
}

// Clone returns a deep copy of s with every collection non-nil.
func (s State) Clone() State {
	out := s
	out.SelectedExtraIDs = s.SelectedExtraIDs.Clone()
	out.SelectedAddonIDs = s.SelectedAddonIDs.Clone()
	out.DisabledComponentKeys = s.DisabledComponentKeys.Clone()
	out.PriceOverrides = make(map[string]float64, len(s.PriceOverrides))
	maps.Copy(out.PriceOverrides, s.PriceOverrides)
	out.CustomIntegrations = make([]CustomIntegration, 0, len(s.CustomIntegrations))
	for _, ci := range s.CustomIntegrations {
		out.CustomIntegrations = append(out.CustomIntegrations, ci.clone())
	}
	return out
}

// IsDisabled reports whether the component key for (t, id) is switched off.
func (s State) IsDisabled(t ComponentType, id string) bool {
	return s.DisabledComponentKeys.Has(ComponentKey(t, id))
}

// Override returns the manual price for an override key, if any.
func (s State) Override(category Category, t ComponentType, id string) (float64, bool) {
	v, ok := s.PriceOverrides[OverrideKey(category, t, id)]
	return v, ok
}

func (s State) customIndex(id string) int {
	return slices.IndexFunc(s.CustomIntegrations, func(ci CustomIntegration) bool {
		return ci.ID == id
	})
}

func cloneAmount(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
