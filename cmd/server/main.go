package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Simplici0/heynow-quoter/internal/ai"
	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/config"
	"github.com/Simplici0/heynow-quoter/internal/db"
	"github.com/Simplici0/heynow-quoter/internal/migrations"
	"github.com/Simplici0/heynow-quoter/internal/seed"
	"github.com/Simplici0/heynow-quoter/internal/store"
)

var startTime = time.Now()

type server struct {
	auth     *authService
	catalog  *catalog.Catalog
	quotes   *store.Store
	proposer *ai.Proposer
	model    string
	log      zerolog.Logger
	now      func() time.Time
}

func main() {
	cfg := config.Load()

	zerolog.SetGlobalLevel(cfg.LogLevel)
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		loaded, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to load catalog")
		}
		cat = loaded
	}

	database, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}
	defer database.Close()

	if err := migrations.Up(database, cfg.DBDriver); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	stats, err := seed.Run(context.Background(), database, seed.Config{
		Driver:        cfg.DBDriver,
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		Catalog:       seedCatalog(cfg, cat),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed database")
	}
	log.Info().Int("inserts", stats.Inserts).Int("updates", stats.Updates).Msg("seed complete")

	secret, err := resolveSessionSecret(cfg.SessionSecret, cfg.IsDev())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid session configuration")
	}
	if cfg.SessionSecret == "" {
		log.Warn().Msg("using a random session secret for this process")
	}

	gemini := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	srv := &server{
		auth:     newAuthService(database, cfg.DBDriver, secret),
		catalog:  cat,
		quotes:   store.New(database, cfg.DBDriver),
		proposer: ai.NewProposer(gemini, cat, log.Logger.With().Str("component", "ai").Logger()),
		model:    gemini.Model(),
		log:      log.Logger,
		now:      time.Now,
	}

	addr := ":" + cfg.Port
	log.Info().
		Str("addr", addr).
		Str("driver", cfg.DBDriver).
		Str("catalog", cat.Version).
		Msg("starting quoter server")
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// seedCatalog only enables the demo quote in development.
func seedCatalog(cfg config.Config, c *catalog.Catalog) *catalog.Catalog {
	if cfg.IsDev() {
		return c
	}
	return nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/health/live", handleLiveness)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/catalog", s.handleCatalog)
		r.Post("/quote", s.handleQuote)
		r.Post("/state/apply", s.handleApply)
		r.Post("/import", s.handleImport)
		r.Post("/proposal", s.handleProposal)
		r.Post("/estimate-effort", s.handleEstimateEffort)

		r.Route("/quotes", func(r chi.Router) {
			r.Get("/", s.handleQuotesList)
			r.Post("/", s.handleQuoteCreate)
			r.Get("/stats", s.handleQuoteStats)
			r.Get("/{id}", s.handleQuoteGet)
			r.Put("/{id}", s.handleQuoteUpdate)
			r.Delete("/{id}", s.handleQuoteDelete)
			r.Post("/{id}/duplicate", s.handleQuoteDuplicate)
			r.Get("/{id}/text", s.handleQuoteText)
			r.Get("/{id}/export", s.handleQuoteExport)
			r.Get("/{id}/proposal", s.handleQuoteProposal)
		})
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "heynow-quoter",
		"catalog": s.catalog.Version,
		"uptime":  time.Since(startTime).String(),
	})
}

func handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			respondError(w, http.StatusBadRequest, "invalid form")
			return
		}
		req = loginRequest{Email: r.FormValue("email"), Password: r.FormValue("password")}
	}

	email := strings.TrimSpace(req.Email)
	valid, err := s.auth.validateCredentials(r.Context(), email, req.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("authentication error")
		respondError(w, http.StatusInternalServerError, "authentication error")
		return
	}
	if !valid {
		respondError(w, http.StatusUnauthorized, "Credenciales inválidas. Intenta de nuevo.")
		return
	}

	s.auth.setSessionCookie(w, email)
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "email": email})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.auth.sessionEmail(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		exists, err := s.auth.userExists(r.Context(), email)
		if err != nil {
			s.log.Error().Err(err).Msg("session lookup")
			respondError(w, http.StatusInternalServerError, "authentication error")
			return
		}
		if !exists {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), userEmailKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// decodeJSON rejects bodies that are not a single JSON document.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
