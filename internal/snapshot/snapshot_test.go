package snapshot

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/selection"
)

func amount(v float64) *float64 { return &v }

func sampleState(t *testing.T, c *catalog.Catalog) selection.State {
	t.Helper()
	s := selection.New(c)
	updates := []selection.Update{
		selection.SetImplementation{ID: "bot1"},
		selection.ToggleExtra{ID: "outbound", Selected: true},
		selection.ToggleAddon{ID: "img-fixed", Selected: true},
		selection.SetIntegration{ID: "vpn"},
		selection.SetSessionModel{ID: "iaBasico"},
		selection.SetSessionPackage{ID: "iaBasico-5000"},
		selection.SetPartner{ID: "partner"},
		selection.AddCustomIntegration{ID: "crm", Name: "CRM", Hours: amount(12), LaborClass: catalog.LaborWithAI},
		selection.SetComponentDisabled{Type: selection.TypeAddon, ID: "img-fixed", Disabled: true},
		selection.SetPriceOverride{Category: selection.CategorySetup, Type: selection.TypeImplementation, ID: "bot1", Value: amount(1000)},
	}
	for _, u := range updates {
		next, err := selection.Apply(s, u)
		if err != nil {
			t.Fatalf("apply %T: %v", u, err)
		}
		s = next
	}
	return s
}

func TestExportImportRoundTrip(t *testing.T) {
	c := catalog.Default()
	s := sampleState(t, c)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	data, err := Export(c, s, now)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	restored, err := Import(c, data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if !reflect.DeepEqual(pricing.Compute(c, s), pricing.Compute(c, restored)) {
		t.Fatalf("round trip changed the quote")
	}
	if !restored.DisabledComponentKeys.Has("addon:img-fixed") {
		t.Fatalf("disabled keys not restored: %v", restored.DisabledComponentKeys)
	}
}

func TestExportIsFlatWithTotals(t *testing.T) {
	c := catalog.Default()
	data, err := Export(c, sampleState(t, c), time.Now())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"implementationId", "selectedExtraIds", "priceOverrides", "totals", "generatedAt"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("expected top-level %q in %s", key, data)
		}
	}
	if !strings.HasPrefix(string(doc["selectedExtraIds"]), "[") {
		t.Fatalf("sets should export as arrays, got %s", doc["selectedExtraIds"])
	}
}

func TestImportDefaultsMissingFields(t *testing.T) {
	c := catalog.Default()

	s, err := Import(c, []byte(`{"implementationId":"bot4","somethingElse":true}`))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if s.ImplementationID != "bot4" {
		t.Fatalf("implementation = %q", s.ImplementationID)
	}
	if s.IntegrationTierID != "none" || s.PartnerTierID != "direct" {
		t.Fatalf("defaults not applied: %+v", s)
	}
	if s.SelectedExtraIDs == nil || s.PriceOverrides == nil || s.CustomIntegrations == nil {
		t.Fatalf("collections should be non-nil: %+v", s)
	}
}

func TestImportRejectsNegativeOverride(t *testing.T) {
	c := catalog.Default()

	_, err := Import(c, []byte(`{"priceOverrides":{"setup:implementation:bot1":-5}}`))
	if !errors.Is(err, selection.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	if _, err := Import(c, []byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestImportGivesCustomLinesDistinctIDs(t *testing.T) {
	c := catalog.Default()

	s, err := Import(c, []byte(`{"customIntegrations":[
		{"name":"CRM","hours":10},
		{"name":"ERP","hours":4},
		{"id":"c1","name":"SAP","hours":2},
		{"id":"c1","name":"SAP bis","hours":3}
	]}`))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	ids := map[string]bool{}
	for _, ci := range s.CustomIntegrations {
		if ci.ID == "" || ids[ci.ID] {
			t.Fatalf("custom line ids not unique: %+v", s.CustomIntegrations)
		}
		ids[ci.ID] = true
	}
	if s.CustomIntegrations[2].ID != "c1" {
		t.Fatalf("first c1 should keep its id, got %q", s.CustomIntegrations[2].ID)
	}

	first := s.CustomIntegrations[0].ID
	disabled, err := selection.Apply(s, selection.SetComponentDisabled{Type: selection.TypeCustomIntegration, ID: first, Disabled: true})
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	var off []string
	for _, line := range pricing.Compute(c, disabled).Breakdown {
		if line.Disabled {
			off = append(off, line.Label)
		}
	}
	if !reflect.DeepEqual(off, []string{"CRM"}) {
		t.Fatalf("disabled lines = %v, want [CRM]", off)
	}

	removed, err := selection.Apply(s, selection.RemoveCustomIntegration{ID: first})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(removed.CustomIntegrations) != 3 {
		t.Fatalf("expected 3 custom lines left, got %d", len(removed.CustomIntegrations))
	}
}
