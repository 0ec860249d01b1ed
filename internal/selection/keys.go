package selection

import "strings"

// ComponentType names the kind of breakdown line a key targets.
type ComponentType string

const (
	TypeImplementation      ComponentType = "implementation"
	TypeImplementationExtra ComponentType = "implementationExtra"
	TypeAddon               ComponentType = "addon"
	TypeIntegration         ComponentType = "integration"
	TypeCustomIntegration   ComponentType = "customIntegration"
	TypeSessionPackage      ComponentType = "sessionPackage"
	TypeBIPlan              ComponentType = "biPlan"
)

// Valid reports whether t is a known component type.
func (t ComponentType) Valid() bool {
	switch t {
	case TypeImplementation, TypeImplementationExtra, TypeAddon, TypeIntegration,
		TypeCustomIntegration, TypeSessionPackage, TypeBIPlan:
		return true
	}
	return false
}

// Category separates one-off setup charges from recurring monthly charges.
type Category string

const (
	CategorySetup   Category = "setup"
	CategoryMonthly Category = "monthly"
)

func (c Category) Valid() bool {
	return c == CategorySetup || c == CategoryMonthly
}

const defaultKeyID = "default"

// ComponentRef identifies the catalog row (or custom line) behind a breakdown line.
type ComponentRef struct {
	Type ComponentType `json:"type"`
	ID   string        `json:"id"`
}

// Key returns the component key for r.
func (r ComponentRef) Key() string {
	return ComponentKey(r.Type, r.ID)
}

// ComponentKey builds the key used in DisabledComponents. Both the reducer and the
// pricing engine must build keys through this function.
func ComponentKey(t ComponentType, id string) string {
	return string(t) + ":" + keyID(id)
}

// OverrideKey builds the key used in PriceOverrides.
func OverrideKey(category Category, t ComponentType, id string) string {
	return string(category) + ":" + string(t) + ":" + keyID(id)
}

func keyID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return defaultKeyID
	}
	return id
}
