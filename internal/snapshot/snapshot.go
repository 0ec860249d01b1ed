package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/selection"
)

// FileName is the suggested download name for an exported quote.
const FileName = "cotizacion-heynow.json"

// Snapshot is the export file format: the selection fields at the top level,
// plus the totals computed at export time.
type Snapshot struct {
	selection.State
	Totals      pricing.Result `json:"totals"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// New captures s with freshly computed totals.
func New(c *catalog.Catalog, s selection.State, now time.Time) Snapshot {
	return Snapshot{
		State:       s.Clone(),
		Totals:      pricing.Compute(c, s),
		GeneratedAt: now.UTC(),
	}
}

// Export encodes s as an indented snapshot document.
func Export(c *catalog.Catalog, s selection.State, now time.Time) ([]byte, error) {
	data, err := json.MarshalIndent(New(c, s, now), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Import decodes a snapshot document back into a selection. Missing fields take
// their session-start defaults, unknown fields are ignored and stored totals are
// discarded; callers recompute them.
func Import(c *catalog.Catalog, data []byte) (selection.State, error) {
	doc := Snapshot{State: selection.New(c)}
	if err := json.Unmarshal(data, &doc); err != nil {
		return selection.State{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := selection.Validate(doc.State); err != nil {
		return selection.State{}, fmt.Errorf("validate snapshot: %w", err)
	}
	return Normalize(c, doc.State), nil
}

// Normalize fills gaps left by partial documents so the state is safe to feed
// back into the reducer.
func Normalize(c *catalog.Catalog, s selection.State) selection.State {
	out := s.Clone()
	if out.IntegrationTierID == "" {
		out.IntegrationTierID = c.NoneIntegrationID
	}
	if !out.IntegrationLaborClass.Valid() {
		out.IntegrationLaborClass = catalog.LaborWithoutAI
	}
	if out.PartnerTierID == "" {
		out.PartnerTierID = c.DefaultPartnerID()
	}
	// Every custom line needs its own id: keys are built from it.
	seen := make(map[string]struct{}, len(out.CustomIntegrations))
	for i := range out.CustomIntegrations {
		ci := &out.CustomIntegrations[i]
		if !ci.LaborClass.Valid() {
			ci.LaborClass = catalog.LaborWithoutAI
		}
		if _, dup := seen[ci.ID]; ci.ID == "" || dup {
			ci.ID = uuid.NewString()
		}
		seen[ci.ID] = struct{}{}
	}
	return out
}
