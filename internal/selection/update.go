package selection

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
)

// Update is one discrete change to a State.
type Update interface {
	apply(s *State) error
}

// Apply returns the state that results from applying u to s. On error the
// original state is returned untouched.
func Apply(s State, u Update) (State, error) {
	next := s.Clone()
	if err := u.apply(&next); err != nil {
		return s, err
	}
	return next, nil
}

type SetImplementation struct{ ID string }

func (u SetImplementation) apply(s *State) error {
	s.ImplementationID = u.ID
	return nil
}

type ToggleExtra struct {
	ID       string
	Selected bool
}

func (u ToggleExtra) apply(s *State) error {
	toggle(s.SelectedExtraIDs, u.ID, u.Selected)
	return nil
}

type ToggleAddon struct {
	ID       string
	Selected bool
}

func (u ToggleAddon) apply(s *State) error {
	toggle(s.SelectedAddonIDs, u.ID, u.Selected)
	return nil
}

type SetIntegration struct{ ID string }

func (u SetIntegration) apply(s *State) error {
	s.IntegrationTierID = u.ID
	return nil
}

type SetIntegrationLabor struct{ Class catalog.LaborClass }

func (u SetIntegrationLabor) apply(s *State) error {
	if !u.Class.Valid() {
		return &InputError{Field: "integrationLaborClass", Message: "debe ser withoutAI o withAI"}
	}
	s.IntegrationLaborClass = u.Class
	return nil
}

// SetSessionModel changes the session model and clears the package, since packages
// belong to a single model.
type SetSessionModel struct{ ID string }

func (u SetSessionModel) apply(s *State) error {
	s.SessionModelID = u.ID
	s.SessionPackageID = ""
	return nil
}

type SetSessionPackage struct{ ID string }

func (u SetSessionPackage) apply(s *State) error {
	s.SessionPackageID = u.ID
	return nil
}

type SetBIPlan struct{ ID string }

func (u SetBIPlan) apply(s *State) error {
	s.BIPlanID = u.ID
	return nil
}

type SetPartner struct{ ID string }

func (u SetPartner) apply(s *State) error {
	s.PartnerTierID = u.ID
	return nil
}

// AddCustomIntegration appends a custom line. An empty ID gets a fresh UUID.
// Drafts with neither hours nor a price are accepted; the engine ignores them.
type AddCustomIntegration struct {
	ID            string
	Name          string
	Hours         *float64
	LaborClass    catalog.LaborClass
	Rate          *float64
	PriceOverride *float64
}

func (u AddCustomIntegration) apply(s *State) error {
	labor := u.LaborClass
	if labor == "" {
		labor = catalog.LaborWithoutAI
	}
	if !labor.Valid() {
		return &InputError{Field: "laborClass", Message: "debe ser withoutAI o withAI"}
	}
	if err := checkAmount("hours", u.Hours); err != nil {
		return err
	}
	if err := checkAmount("rate", u.Rate); err != nil {
		return err
	}
	if err := checkAmount("priceOverride", u.PriceOverride); err != nil {
		return err
	}

	id := u.ID
	if id == "" {
		id = uuid.NewString()
	}
	if s.customIndex(id) >= 0 {
		return &InputError{Field: "id", Message: fmt.Sprintf("%q ya existe", id)}
	}

	s.CustomIntegrations = append(s.CustomIntegrations, CustomIntegration{
		ID:            id,
		Name:          u.Name,
		Hours:         cloneAmount(u.Hours),
		LaborClass:    labor,
		Rate:          positiveOrNil(u.Rate),
		PriceOverride: positiveOrNil(u.PriceOverride),
	})
	return nil
}

// CustomField names the editable fields of a custom integration line.
type CustomField string

const (
	FieldName          CustomField = "name"
	FieldHours         CustomField = "hours"
	FieldLaborClass    CustomField = "laborClass"
	FieldRate          CustomField = "rate"
	FieldPriceOverride CustomField = "priceOverride"
)

// UpdateCustomIntegration edits a single field of an existing custom line. Text
// carries name and labor class values; Amount carries numeric ones (nil clears).
// Unknown line ids are ignored.
type UpdateCustomIntegration struct {
	ID     string
	Field  CustomField
	Text   string
	Amount *float64
}

func (u UpdateCustomIntegration) apply(s *State) error {
	idx := s.customIndex(u.ID)
	if idx < 0 {
		return nil
	}
	line := &s.CustomIntegrations[idx]

	switch u.Field {
	case FieldName:
		line.Name = u.Text
	case FieldLaborClass:
		class := catalog.LaborClass(u.Text)
		if !class.Valid() {
			return &InputError{Field: "laborClass", Message: "debe ser withoutAI o withAI"}
		}
		line.LaborClass = class
	case FieldHours:
		if err := checkAmount("hours", u.Amount); err != nil {
			return err
		}
		line.Hours = cloneAmount(u.Amount)
	case FieldRate:
		if err := checkAmount("rate", u.Amount); err != nil {
			return err
		}
		line.Rate = positiveOrNil(u.Amount)
	case FieldPriceOverride:
		if err := checkAmount("priceOverride", u.Amount); err != nil {
			return err
		}
		line.PriceOverride = positiveOrNil(u.Amount)
	default:
		return &InputError{Field: "field", Message: fmt.Sprintf("%q no es editable", u.Field)}
	}
	return nil
}

type RemoveCustomIntegration struct{ ID string }

func (u RemoveCustomIntegration) apply(s *State) error {
	s.CustomIntegrations = slices.DeleteFunc(s.CustomIntegrations, func(ci CustomIntegration) bool {
		return ci.ID == u.ID
	})
	return nil
}

// SetComponentDisabled switches a breakdown line off (or back on) without touching
// the underlying selection.
type SetComponentDisabled struct {
	Type     ComponentType
	ID       string
	Disabled bool
}

func (u SetComponentDisabled) apply(s *State) error {
	if !u.Type.Valid() {
		return &InputError{Field: "type", Message: fmt.Sprintf("%q no es un componente válido", u.Type)}
	}
	toggle(s.DisabledComponentKeys, ComponentKey(u.Type, u.ID), u.Disabled)
	return nil
}

// SetPriceOverride stores a manual price for one breakdown line. A nil Value
// removes the override.
type SetPriceOverride struct {
	Category Category
	Type     ComponentType
	ID       string
	Value    *float64
}

func (u SetPriceOverride) apply(s *State) error {
	if !u.Category.Valid() {
		return &InputError{Field: "category", Message: "debe ser setup o monthly"}
	}
	if !u.Type.Valid() {
		return &InputError{Field: "type", Message: fmt.Sprintf("%q no es un componente válido", u.Type)}
	}
	if err := checkAmount("override", u.Value); err != nil {
		return err
	}

	key := OverrideKey(u.Category, u.Type, u.ID)
	if u.Value == nil {
		delete(s.PriceOverrides, key)
		return nil
	}
	s.PriceOverrides[key] = *u.Value
	return nil
}

// RemoveComponent drops a component from the selection itself: set members are
// unselected, custom lines deleted and single selects reset to empty.
type RemoveComponent struct {
	Type ComponentType
	ID   string
}

func (u RemoveComponent) apply(s *State) error {
	switch u.Type {
	case TypeImplementation:
		s.ImplementationID = ""
	case TypeImplementationExtra:
		delete(s.SelectedExtraIDs, u.ID)
	case TypeAddon:
		delete(s.SelectedAddonIDs, u.ID)
	case TypeIntegration:
		s.IntegrationTierID = ""
	case TypeCustomIntegration:
		return RemoveCustomIntegration{ID: u.ID}.apply(s)
	case TypeSessionPackage:
		s.SessionPackageID = ""
	case TypeBIPlan:
		s.BIPlanID = ""
	default:
		return &InputError{Field: "type", Message: fmt.Sprintf("%q no es un componente válido", u.Type)}
	}
	return nil
}

// Reset replaces the whole state, typically with New(catalog).
type Reset struct{ To State }

func (u Reset) apply(s *State) error {
	*s = u.To.Clone()
	return nil
}

func toggle(set IDSet, id string, on bool) {
	if on {
		set[id] = struct{}{}
		return
	}
	delete(set, id)
}
