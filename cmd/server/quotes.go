package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/render"
	"github.com/Simplici0/heynow-quoter/internal/selection"
	"github.com/Simplici0/heynow-quoter/internal/snapshot"
	"github.com/Simplici0/heynow-quoter/internal/store"
)

type quoteBody struct {
	ClientName string          `json:"clientName"`
	State      json.RawMessage `json:"quoteData"`
	Tags       []string        `json:"tags"`
}

// input prices the submitted state; totals stored with a quote are always
// recomputed server side.
func (s *server) input(r *http.Request, body quoteBody) (store.Input, error) {
	state, err := s.decodeState(body.State)
	if err != nil {
		return store.Input{}, err
	}
	return store.Input{
		ClientName: body.ClientName,
		State:      state,
		Totals:     s.price(state),
		Tags:       body.Tags,
		CreatedBy:  userEmail(r.Context()),
	}, nil
}

func (s *server) price(state selection.State) pricing.Result {
	return pricing.Compute(s.catalog, state)
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.Filter{ClientName: strings.TrimSpace(query.Get("client"))}
	if raw := strings.TrimSpace(query.Get("tags")); raw != "" {
		filter.Tags = strings.Split(raw, ",")
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "limit debe ser un entero mayor o igual a 0")
			return
		}
		filter.Limit = limit
	}

	quotes, err := s.quotes.List(r.Context(), filter)
	if err != nil {
		s.log.Error().Err(err).Msg("list quotes")
		respondError(w, http.StatusInternalServerError, "failed to load quotes")
		return
	}
	respondJSON(w, http.StatusOK, quotes)
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var body quoteBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := s.input(r, body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := s.quotes.Save(r.Context(), in)
	if err != nil {
		s.respondStoreError(w, "save quote", err)
		return
	}
	s.log.Info().Str("quote_id", quote.ID).Str("client", quote.ClientName).Msg("quote saved")
	respondJSON(w, http.StatusCreated, quote)
}

func (s *server) handleQuoteGet(w http.ResponseWriter, r *http.Request) {
	quote, err := s.quotes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, "get quote", err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (s *server) handleQuoteUpdate(w http.ResponseWriter, r *http.Request) {
	var body quoteBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := s.input(r, body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := s.quotes.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondStoreError(w, "update quote", err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (s *server) handleQuoteDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.quotes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondStoreError(w, "delete quote", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleQuoteDuplicate(w http.ResponseWriter, r *http.Request) {
	quote, err := s.quotes.Duplicate(r.Context(), chi.URLParam(r, "id"), userEmail(r.Context()), s.price)
	if err != nil {
		s.respondStoreError(w, "duplicate quote", err)
		return
	}
	respondJSON(w, http.StatusCreated, quote)
}

func (s *server) handleQuoteStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.quotes.Statistics(r.Context())
	if err != nil {
		s.respondStoreError(w, "quote statistics", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	quote, err := s.quotes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, "get quote", err)
		return
	}

	var buf bytes.Buffer
	if err := render.Text(&buf, s.catalog, quote.State, s.now()); err != nil {
		s.log.Error().Err(err).Str("quote_id", quote.ID).Msg("render quote text")
		respondError(w, http.StatusInternalServerError, "failed to render quote")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleQuoteExport(w http.ResponseWriter, r *http.Request) {
	quote, err := s.quotes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, "get quote", err)
		return
	}

	data, err := snapshot.Export(s.catalog, quote.State, s.now())
	if err != nil {
		s.log.Error().Err(err).Str("quote_id", quote.ID).Msg("export quote")
		respondError(w, http.StatusInternalServerError, "failed to export quote")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snapshot.FileName))
	_, _ = w.Write(data)
}

func (s *server) handleQuoteProposal(w http.ResponseWriter, r *http.Request) {
	proposal, err := s.quotes.LatestProposal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, "latest proposal", err)
		return
	}
	respondJSON(w, http.StatusOK, proposal)
}

func (s *server) respondStoreError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "cotización no encontrada")
	case errors.Is(err, store.ErrClientNameRequired):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Str("action", action).Msg("store failure")
		respondError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
