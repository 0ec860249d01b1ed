package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultNoneIntegrationID = "none"

//go:embed default.yaml
var defaultCatalogYAML []byte

// Format is the encoding of a catalog file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Default returns the catalog shipped with the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML, FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file. The format is chosen from the file extension.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}

	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog document.
func Parse(data []byte, format Format) (*Catalog, error) {
	var c Catalog
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode catalog json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode catalog yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}

	if c.NoneIntegrationID == "" {
		c.NoneIntegrationID = defaultNoneIntegrationID
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

// Validate checks the structural invariants the pricing engine relies on.
func (c *Catalog) Validate() error {
	var errs []error

	if c.Rates.WithoutAI <= 0 || c.Rates.WithAI <= 0 {
		errs = append(errs, errors.New("rates must be greater than 0"))
	}
	if len(c.Partners) == 0 {
		errs = append(errs, errors.New("at least one partner tier is required"))
	}

	components := map[string][]Component{
		"implementations":      c.Implementations,
		"implementationExtras": c.ImplementationExtras,
		"addons":               c.Addons,
	}
	for _, category := range []string{"implementations", "implementationExtras", "addons"} {
		seen := make(map[string]bool)
		for _, item := range components[category] {
			if item.ID == "" {
				errs = append(errs, fmt.Errorf("%s: id is required", category))
				continue
			}
			if seen[item.ID] {
				errs = append(errs, fmt.Errorf("%s: duplicate id %q", category, item.ID))
			}
			seen[item.ID] = true
			if item.SetupCost < 0 || item.LaborHours < 0 {
				errs = append(errs, fmt.Errorf("%s %q: cost and hours must be >= 0", category, item.ID))
			}
			if !item.LaborClass.Valid() {
				errs = append(errs, fmt.Errorf("%s %q: unknown labor class %q", category, item.ID, item.LaborClass))
			}
		}
	}

	seen := make(map[string]bool)
	for _, tier := range c.Integrations {
		if seen[tier.ID] {
			errs = append(errs, fmt.Errorf("integrations: duplicate id %q", tier.ID))
		}
		seen[tier.ID] = true
		if tier.BaseHours < 0 || tier.MonthlyCost < 0 || (tier.FixedCost != nil && *tier.FixedCost < 0) {
			errs = append(errs, fmt.Errorf("integrations %q: costs and hours must be >= 0", tier.ID))
		}
	}

	seen = make(map[string]bool)
	for _, tier := range c.Partners {
		if seen[tier.ID] {
			errs = append(errs, fmt.Errorf("partners: duplicate id %q", tier.ID))
		}
		seen[tier.ID] = true
		if tier.SetupMarginFraction < 0 || tier.MonthlyMarginFraction < 0 {
			errs = append(errs, fmt.Errorf("partners %q: margin fractions must be >= 0", tier.ID))
		}
	}

	seen = make(map[string]bool)
	for _, pkg := range c.SessionPackages {
		if seen[pkg.ID] {
			errs = append(errs, fmt.Errorf("sessionPackages: duplicate id %q", pkg.ID))
		}
		seen[pkg.ID] = true
		if pkg.MonthlyCost < 0 || pkg.ExtraSessionCost < 0 {
			errs = append(errs, fmt.Errorf("sessionPackages %q: costs must be >= 0", pkg.ID))
		}
	}

	seen = make(map[string]bool)
	for _, plan := range c.BIPlans {
		if seen[plan.ID] {
			errs = append(errs, fmt.Errorf("biPlans: duplicate id %q", plan.ID))
		}
		seen[plan.ID] = true
		if plan.MonthlyCost < 0 {
			errs = append(errs, fmt.Errorf("biPlans %q: cost must be >= 0", plan.ID))
		}
	}

	return errors.Join(errs...)
}
