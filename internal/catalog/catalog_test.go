package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := Default()

	if len(c.Implementations) != 5 {
		t.Fatalf("expected 5 implementations, got %d", len(c.Implementations))
	}
	if c.Rates.WithoutAI != 45 || c.Rates.WithAI != 70 {
		t.Fatalf("unexpected rates: %+v", c.Rates)
	}

	vpn, ok := c.Integration("vpn")
	if !ok {
		t.Fatalf("expected vpn integration tier")
	}
	if vpn.FixedCost == nil || *vpn.FixedCost != 360 || vpn.MonthlyCost != 190 {
		t.Fatalf("unexpected vpn tier: %+v", vpn)
	}
	if !c.IsNoneIntegration("none") {
		t.Fatalf("expected none sentinel")
	}
}

func TestLookupsReturnFalseForUnknownIDs(t *testing.T) {
	c := Default()

	if _, ok := c.Implementation(""); ok {
		t.Fatalf("empty id must not resolve")
	}
	if _, ok := c.Addon("missing"); ok {
		t.Fatalf("unknown addon must not resolve")
	}
	if _, ok := c.SessionPackage("missing"); ok {
		t.Fatalf("unknown session package must not resolve")
	}
}

func TestPartnerFallsBackToFirstTier(t *testing.T) {
	c := Default()

	if got := c.Partner("gold"); got.SetupMarginFraction != 0.15 {
		t.Fatalf("gold setup margin = %v, want 0.15", got.SetupMarginFraction)
	}
	if got := c.Partner("unknown"); got.ID != "direct" {
		t.Fatalf("fallback partner = %q, want direct", got.ID)
	}

	empty := &Catalog{}
	if got := empty.Partner("x"); got.SetupMarginFraction != 0 || got.MonthlyMarginFraction != 0 {
		t.Fatalf("expected zero tier, got %+v", got)
	}
}

func TestPackagesForModelKeepsCatalogOrder(t *testing.T) {
	c := Default()

	packages := c.PackagesForModel("iaBasico")
	if len(packages) != 7 {
		t.Fatalf("expected 7 packages, got %d", len(packages))
	}
	if packages[0].ID != "iaBasico-2500" || packages[6].ID != "iaBasico-300000" {
		t.Fatalf("unexpected order: %+v", packages)
	}
}

func TestRatesForUnknownClassUsesWithoutAI(t *testing.T) {
	r := Rates{WithoutAI: 45, WithAI: 70}
	if got := r.For("bogus"); got != 45 {
		t.Fatalf("rate = %v, want 45", got)
	}
	if got := r.For(LaborWithAI); got != 70 {
		t.Fatalf("rate = %v, want 70", got)
	}
}

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "catalog.yaml")
	yamlDoc := []byte(`
currency: USD
rates: {withoutAI: 50, withAI: 80}
partners:
  - {id: direct, name: Directo}
implementations:
  - {id: a, name: A, setupCost: 1200, laborHours: 30, laborClass: withoutAI}
`)
	if err := os.WriteFile(yamlPath, yamlDoc, 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	c, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if c.NoneIntegrationID != "none" {
		t.Fatalf("expected default none id, got %q", c.NoneIntegrationID)
	}
	if impl, ok := c.Implementation("a"); !ok || impl.SetupCost != 1200 {
		t.Fatalf("unexpected implementation: %+v", impl)
	}

	jsonPath := filepath.Join(dir, "catalog.json")
	jsonDoc := []byte(`{"rates":{"withoutAI":1,"withAI":2},"partners":[{"id":"p"}]}`)
	if err := os.WriteFile(jsonPath, jsonDoc, 0o600); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if _, err := Load(jsonPath); err != nil {
		t.Fatalf("load json: %v", err)
	}
}

func TestParseRejectsInvalidCatalog(t *testing.T) {
	doc := []byte(`
rates: {withoutAI: 45, withAI: 70}
partners:
  - {id: direct, setupMarginFraction: -0.1}
addons:
  - {id: x, name: X, setupCost: 10, laborHours: 1, laborClass: withAI}
  - {id: x, name: X2, setupCost: 10, laborHours: 1, laborClass: robots}
`)

	_, err := Parse(doc, FormatYAML)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"duplicate id", "unknown labor class", "margin fractions"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %q, got %v", want, err)
		}
	}
}
