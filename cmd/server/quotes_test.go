package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/Simplici0/heynow-quoter/internal/store"
)

func createQuote(t *testing.T, ts *testServer, client string, state map[string]any, tags ...string) store.Quote {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/quotes", map[string]any{
		"clientName": client,
		"quoteData":  state,
		"tags":       tags,
	})
	expectStatus(t, rec, http.StatusCreated)
	return decodeBody[store.Quote](t, rec)
}

func TestCreateQuoteComputesTotalsServerSide(t *testing.T) {
	ts := newTestServer(t)

	quote := createQuote(t, ts, "Acme", map[string]any{"implementationId": "bot1", "partnerTierId": "partner"}, "Retail")

	if quote.ID == "" {
		t.Fatalf("expected generated id")
	}
	if quote.CreatedBy != testEmail {
		t.Fatalf("CreatedBy = %q, want %q", quote.CreatedBy, testEmail)
	}
	if quote.Totals.FinalSetupTotal != 1200 {
		t.Fatalf("FinalSetupTotal = %v, want 1200", quote.Totals.FinalSetupTotal)
	}
	if len(quote.Tags) != 1 || quote.Tags[0] != "Retail" {
		t.Fatalf("unexpected tags: %v", quote.Tags)
	}
}

func TestCreateQuoteRequiresClientName(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/quotes", map[string]any{"clientName": "  "})
	expectStatus(t, rec, http.StatusBadRequest)

	body := decodeBody[errorBody](t, rec)
	if body.Error != store.ErrClientNameRequired.Error() {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestListQuotesFiltersByClientAndTags(t *testing.T) {
	ts := newTestServer(t)

	createQuote(t, ts, "Casa Bonita", nil, "retail")
	createQuote(t, ts, "Llaveros SA", nil, "retail", "vip")
	createQuote(t, ts, "Banco Casa", nil)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Banco Casa", "Llaveros SA", "Casa Bonita"}},
		{"?client=casa", []string{"Banco Casa", "Casa Bonita"}},
		{"?tags=retail,vip", []string{"Llaveros SA"}},
		{"?limit=1", []string{"Banco Casa"}},
	}
	for _, tt := range tests {
		rec := ts.do(t, http.MethodGet, "/api/quotes"+tt.query, nil)
		expectStatus(t, rec, http.StatusOK)

		quotes := decodeBody[[]store.Quote](t, rec)
		var names []string
		for _, q := range quotes {
			names = append(names, q.ClientName)
		}
		if strings.Join(names, "|") != strings.Join(tt.want, "|") {
			t.Fatalf("%q: got %v, want %v", tt.query, names, tt.want)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/quotes?limit=-1", nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestQuoteLifecycle(t *testing.T) {
	ts := newTestServer(t)
	quote := createQuote(t, ts, "Acme", map[string]any{"implementationId": "bot1"})
	path := "/api/quotes/" + quote.ID

	rec := ts.do(t, http.MethodGet, path, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[store.Quote](t, rec); got.State.ImplementationID != "bot1" {
		t.Fatalf("state not restored: %+v", got.State)
	}

	rec = ts.do(t, http.MethodPut, path, map[string]any{
		"clientName": "Acme Corp",
		"quoteData":  map[string]any{"implementationId": "bot4"},
	})
	expectStatus(t, rec, http.StatusOK)
	updated := decodeBody[store.Quote](t, rec)
	if updated.ClientName != "Acme Corp" || updated.Totals.FinalSetupTotal != 1400 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if !updated.CreatedAt.Equal(quote.CreatedAt) {
		t.Fatalf("CreatedAt changed on update")
	}

	rec = ts.do(t, http.MethodPost, path+"/duplicate", nil)
	expectStatus(t, rec, http.StatusCreated)
	dup := decodeBody[store.Quote](t, rec)
	if dup.ID == quote.ID || dup.ClientName != "Acme Corp (Copia)" {
		t.Fatalf("unexpected duplicate: %+v", dup)
	}

	rec = ts.do(t, http.MethodGet, "/api/quotes/stats", nil)
	expectStatus(t, rec, http.StatusOK)
	stats := decodeBody[store.Stats](t, rec)
	if stats.TotalQuotes != 2 || stats.TotalSetupValue != 2800 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	rec = ts.do(t, http.MethodDelete, path, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = ts.do(t, http.MethodGet, path, nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = ts.do(t, http.MethodPut, path, map[string]any{"clientName": "Acme"})
	expectStatus(t, rec, http.StatusNotFound)
}

func TestQuoteTextAndExport(t *testing.T) {
	ts := newTestServer(t)
	quote := createQuote(t, ts, "Acme", map[string]any{"implementationId": "bot1", "partnerTierId": "partner"})

	rec := ts.do(t, http.MethodGet, "/api/quotes/"+quote.ID+"/text", nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("Content-Type = %q", ct)
	}
	text := rec.Body.String()
	for _, want := range []string{"14/03/2025", "US$ 1.320", "+ Impuestos"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text missing %q:\n%s", want, text)
		}
	}

	rec = ts.do(t, http.MethodGet, "/api/quotes/"+quote.ID+"/export", nil)
	expectStatus(t, rec, http.StatusOK)
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "cotizacion-heynow.json") {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	rec = ts.do(t, http.MethodPost, "/api/import", rec.Body.String())
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[quoteResponse](t, rec); got.State.ImplementationID != "bot1" || got.State.PartnerTierID != "partner" {
		t.Fatalf("export did not import back: %+v", got.State)
	}
}
