package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/selection"
)

type reply struct {
	status int
	body   string
}

func textReply(text string) reply {
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return reply{status: http.StatusOK, body: string(body)}
}

func errorReply(status int, message, reason string) reply {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
			"status":  "ERROR",
			"details": []any{map[string]any{"reason": reason}},
		},
	})
	return reply{status: status, body: string(body)}
}

// newTestProposer serves replies in order; the last one repeats.
func newTestProposer(t *testing.T, replies ...reply) (*Proposer, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if !strings.HasSuffix(r.URL.Path, "/models/"+DefaultModel+":generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		n := int(calls.Add(1)) - 1
		if n >= len(replies) {
			n = len(replies) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(replies[n].status)
		_, _ = w.Write([]byte(replies[n].body))
	}))
	t.Cleanup(srv.Close)

	client := NewGeminiClient("test-key", "", WithBaseURL(srv.URL))
	p := NewProposer(client, catalog.Default(), zerolog.Nop())
	p.Backoff = time.Millisecond
	return p, &calls
}

func quotedState(t *testing.T) (selection.State, pricing.Result) {
	t.Helper()

	c := catalog.Default()
	s := selection.New(c)
	for _, u := range []selection.Update{
		selection.SetImplementation{ID: "bot1"},
		selection.ToggleAddon{ID: "img-fixed", Selected: true},
		selection.SetIntegration{ID: "vpn"},
		selection.AddCustomIntegration{ID: "c1", Name: "SAP"},
	} {
		next, err := selection.Apply(s, u)
		if err != nil {
			t.Fatalf("apply %T: %v", u, err)
		}
		s = next
	}
	return s, pricing.Compute(c, s)
}

func TestGenerateProposalRetriesWhenOverloaded(t *testing.T) {
	p, calls := newTestProposer(t,
		errorReply(http.StatusServiceUnavailable, "The model is overloaded", ""),
		textReply("Alcance del proyecto"),
	)
	s, result := quotedState(t)

	text, err := p.GenerateProposal(context.Background(), ClientContext{ClientName: "Acme"}, s, result)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Alcance del proyecto" {
		t.Fatalf("text = %q", text)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestGenerateProposalGivesUpAfterTwoRetries(t *testing.T) {
	p, calls := newTestProposer(t, errorReply(http.StatusServiceUnavailable, "overloaded", ""))
	s, result := quotedState(t)

	_, err := p.GenerateProposal(context.Background(), ClientContext{}, s, result)
	if !errors.Is(err, ErrOverloaded) {
		t.Fatalf("expected ErrOverloaded, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestGenerateProposalDoesNotRetryOtherFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply reply
		want  error
	}{
		{"quota", errorReply(http.StatusTooManyRequests, "Resource has been exhausted", ""), ErrQuotaExceeded},
		{"invalid key", errorReply(http.StatusBadRequest, "API key not valid", "API_KEY_INVALID"), ErrInvalidAPIKey},
		{"empty", textReply("   "), ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, calls := newTestProposer(t, tt.reply)
			s, result := quotedState(t)

			_, err := p.GenerateProposal(context.Background(), ClientContext{}, s, result)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if calls.Load() != 1 {
				t.Fatalf("expected a single call, got %d", calls.Load())
			}
		})
	}
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	p := NewProposer(NewGeminiClient("", ""), catalog.Default(), zerolog.Nop())

	if _, err := p.EstimateEffort(context.Background(), "integración con SAP"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestEstimateEffort(t *testing.T) {
	p, _ := newTestProposer(t, textReply("40 horas"))

	hours, err := p.EstimateEffort(context.Background(), "Consulta de pedidos en SAP")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if hours != 40 {
		t.Fatalf("hours = %d, want 40", hours)
	}

	if _, err := p.EstimateEffort(context.Background(), "  "); !errors.Is(err, selection.ErrInvalidInput) {
		t.Fatalf("expected blank description to be rejected, got %v", err)
	}
}

func TestParseHours(t *testing.T) {
	for raw, want := range map[string]int{"12": 12, " 8\n": 8, "30h": 30, "1000000": 1_000_000} {
		got, err := ParseHours(raw)
		if err != nil || got != want {
			t.Fatalf("%q: got %d, %v", raw, got, err)
		}
	}
	for _, raw := range []string{"", "unas 20", "-5", "1000001", "99999999999999999999999 horas"} {
		if _, err := ParseHours(raw); !errors.Is(err, ErrInvalidEstimate) {
			t.Fatalf("%q: expected ErrInvalidEstimate, got %v", raw, err)
		}
	}
}

func TestBuildProposalPrompt(t *testing.T) {
	c := catalog.Default()
	s, result := quotedState(t)

	prompt := BuildProposalPrompt(c, ClientContext{
		ClientName: "Acme",
		Industry:   "Retail",
		AgentType:  "hibrido",
		Volume:     "alto",
	}, s, result)

	for _, want := range []string{
		"Cliente: Acme",
		"Híbrido (Base de Conocimiento + Integraciones)",
		"Alto (10K - 50K conv/mes)",
		"Integraciones Personalizadas: SAP",
		"Setup (pago único): US$",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Puntos de Dolor") {
		t.Fatalf("empty optional fields should be omitted")
	}
}
