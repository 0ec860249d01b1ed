package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Simplici0/heynow-quoter/internal/ai"
	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/selection"
	"github.com/Simplici0/heynow-quoter/internal/store"
)

type proposalRequest struct {
	Client  ai.ClientContext `json:"clientContext"`
	State   json.RawMessage  `json:"state"`
	QuoteID string           `json:"quoteId"`
}

type proposalResponse struct {
	Proposal string          `json:"proposal"`
	Model    string          `json:"model"`
	Saved    *store.Proposal `json:"saved,omitempty"`
}

// handleProposal writes the scope section for a client-held state or, when
// quoteId is given, for a saved quote; in that case the text is also stored.
func (s *server) handleProposal(w http.ResponseWriter, r *http.Request) {
	var req proposalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		state selection.State
		err   error
	)
	if req.QuoteID != "" {
		quote, err := s.quotes.Get(r.Context(), req.QuoteID)
		if err != nil {
			s.respondStoreError(w, "get quote", err)
			return
		}
		state = quote.State
		if strings.TrimSpace(req.Client.ClientName) == "" {
			req.Client.ClientName = quote.ClientName
		}
	} else if state, err = s.decodeState(req.State); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := s.proposer.GenerateProposal(r.Context(), req.Client, state, pricing.Compute(s.catalog, state))
	if err != nil {
		respondAIError(w, err)
		return
	}

	resp := proposalResponse{Proposal: text, Model: s.model}
	if req.QuoteID != "" {
		saved, err := s.quotes.SaveProposal(r.Context(), req.QuoteID, s.model, text)
		if err != nil {
			s.log.Warn().Err(err).Str("quote_id", req.QuoteID).Msg("proposal generated but not stored")
		} else {
			resp.Saved = &saved
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

type estimateRequest struct {
	Description string `json:"description"`
}

func (s *server) handleEstimateEffort(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hours, err := s.proposer.EstimateEffort(r.Context(), req.Description)
	if err != nil {
		respondAIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"hours": hours})
}

var aiFailures = []struct {
	err    error
	status int
}{
	{ai.ErrMissingAPIKey, http.StatusServiceUnavailable},
	{ai.ErrOverloaded, http.StatusServiceUnavailable},
	{ai.ErrQuotaExceeded, http.StatusTooManyRequests},
	{ai.ErrInvalidAPIKey, http.StatusBadGateway},
	{ai.ErrEmptyResponse, http.StatusBadGateway},
	{ai.ErrInvalidEstimate, http.StatusBadGateway},
}

// respondAIError hides upstream details behind the sentinel's message.
func respondAIError(w http.ResponseWriter, err error) {
	if errors.Is(err, selection.ErrInvalidInput) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, f := range aiFailures {
		if errors.Is(err, f.err) {
			respondError(w, f.status, f.err.Error())
			return
		}
	}
	respondError(w, http.StatusBadGateway, "no se pudo generar la respuesta")
}
