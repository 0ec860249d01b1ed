package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/selection"
	"github.com/Simplici0/heynow-quoter/internal/snapshot"
)

type quoteRequest struct {
	State json.RawMessage `json:"state"`
}

type quoteResponse struct {
	State  selection.State      `json:"state"`
	Totals pricing.Result       `json:"totals"`
	Rates  pricing.RateAnalysis `json:"rates"`
}

func (s *server) priced(state selection.State) quoteResponse {
	result := pricing.Compute(s.catalog, state)
	return quoteResponse{
		State:  state,
		Totals: result,
		Rates:  pricing.AnalyzeRates(result.Breakdown),
	}
}

// decodeState reads a client-held selection. An absent state is a fresh session.
func (s *server) decodeState(raw json.RawMessage) (selection.State, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return selection.New(s.catalog), nil
	}
	return snapshot.Import(s.catalog, raw)
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog)
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	state, err := s.decodeState(req.State)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.priced(state))
}

type applyRequest struct {
	State  json.RawMessage `json:"state"`
	Update updateRequest   `json:"update"`
}

// updateRequest is the wire form of a selection.Update. Op picks the update;
// the other fields are read as that update needs them. Amounts accept JSON
// numbers or the raw text typed by the user.
type updateRequest struct {
	Op            string          `json:"op"`
	ID            string          `json:"id"`
	Selected      bool            `json:"selected"`
	Disabled      bool            `json:"disabled"`
	Type          string          `json:"type"`
	Category      string          `json:"category"`
	Name          string          `json:"name"`
	LaborClass    string          `json:"laborClass"`
	Field         string          `json:"field"`
	Text          string          `json:"text"`
	Hours         json.RawMessage `json:"hours"`
	Rate          json.RawMessage `json:"rate"`
	PriceOverride json.RawMessage `json:"priceOverride"`
	Value         json.RawMessage `json:"value"`
}

func (s *server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	state, err := s.decodeState(req.State)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	update, err := req.Update.toUpdate(s.catalog)
	if err == nil {
		var next selection.State
		next, err = selection.Apply(state, update)
		if err == nil {
			state = next
		}
	}
	if err != nil {
		if !errors.Is(err, selection.ErrInvalidInput) {
			s.log.Error().Err(err).Str("op", req.Update.Op).Msg("apply update")
			respondError(w, http.StatusInternalServerError, "failed to apply update")
			return
		}
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   err.Error(),
			"state":   state,
		})
		return
	}

	respondJSON(w, http.StatusOK, s.priced(state))
}

func (u updateRequest) toUpdate(c *catalog.Catalog) (selection.Update, error) {
	switch u.Op {
	case "setImplementation":
		return selection.SetImplementation{ID: u.ID}, nil
	case "toggleExtra":
		return selection.ToggleExtra{ID: u.ID, Selected: u.Selected}, nil
	case "toggleAddon":
		return selection.ToggleAddon{ID: u.ID, Selected: u.Selected}, nil
	case "setIntegration":
		return selection.SetIntegration{ID: u.ID}, nil
	case "setIntegrationLabor":
		return selection.SetIntegrationLabor{Class: catalog.LaborClass(u.LaborClass)}, nil
	case "setSessionModel":
		return selection.SetSessionModel{ID: u.ID}, nil
	case "setSessionPackage":
		return selection.SetSessionPackage{ID: u.ID}, nil
	case "setBIPlan":
		return selection.SetBIPlan{ID: u.ID}, nil
	case "setPartner":
		return selection.SetPartner{ID: u.ID}, nil
	case "addCustomIntegration":
		hours, err := parseAmount("hours", u.Hours)
		if err != nil {
			return nil, err
		}
		rate, err := parseAmount("rate", u.Rate)
		if err != nil {
			return nil, err
		}
		price, err := parseAmount("priceOverride", u.PriceOverride)
		if err != nil {
			return nil, err
		}
		return selection.AddCustomIntegration{
			ID:            u.ID,
			Name:          u.Name,
			Hours:         hours,
			LaborClass:    catalog.LaborClass(u.LaborClass),
			Rate:          rate,
			PriceOverride: price,
		}, nil
	case "updateCustomIntegration":
		field := selection.CustomField(u.Field)
		update := selection.UpdateCustomIntegration{ID: u.ID, Field: field, Text: u.Text}
		switch field {
		case selection.FieldHours, selection.FieldRate, selection.FieldPriceOverride:
			amount, err := parseAmount(u.Field, u.Value)
			if err != nil {
				return nil, err
			}
			update.Amount = amount
		}
		return update, nil
	case "removeCustomIntegration":
		return selection.RemoveCustomIntegration{ID: u.ID}, nil
	case "setComponentDisabled":
		return selection.SetComponentDisabled{Type: selection.ComponentType(u.Type), ID: u.ID, Disabled: u.Disabled}, nil
	case "setPriceOverride":
		value, err := parseAmount("value", u.Value)
		if err != nil {
			return nil, err
		}
		return selection.SetPriceOverride{
			Category: selection.Category(u.Category),
			Type:     selection.ComponentType(u.Type),
			ID:       u.ID,
			Value:    value,
		}, nil
	case "removeComponent":
		return selection.RemoveComponent{Type: selection.ComponentType(u.Type), ID: u.ID}, nil
	case "reset":
		return selection.Reset{To: selection.New(c)}, nil
	}
	return nil, &selection.InputError{Field: "op", Message: fmt.Sprintf("%q no es una operación válida", u.Op)}
}

// parseAmount accepts null, a JSON number or a JSON string holding the number.
func parseAmount(field string, raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, &selection.InputError{Field: field, Message: "debe ser numérico"}
		}
		return selection.ParseAmount(field, text)
	}
	return selection.ParseAmount(field, string(raw))
}

func (s *server) handleImport(w http.ResponseWriter, r *http.Request) {
	var doc json.RawMessage
	if err := decodeJSON(w, r, &doc); err != nil {
		respondError(w, http.StatusBadRequest, "archivo de cotización inválido")
		return
	}
	state, err := snapshot.Import(s.catalog, doc)
	if err != nil {
		respondError(w, http.StatusBadRequest, "archivo de cotización inválido: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.priced(state))
}
