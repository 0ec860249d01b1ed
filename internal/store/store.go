package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/heynow-quoter/internal/db"
	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/selection"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const (
	copySuffix = " (Copia)"
	copyTag    = "copia"
)

var (
	ErrNotFound           = errors.New("quote not found")
	ErrClientNameRequired = errors.New("el nombre del cliente es requerido")
)

// Quote is a saved selection together with the totals computed when it was saved.
type Quote struct {
	ID         string          `json:"id"`
	ClientName string          `json:"clientName"`
	State      selection.State `json:"quoteData"`
	Totals     pricing.Result  `json:"totals"`
	Tags       []string        `json:"tags"`
	CreatedBy  string          `json:"createdBy"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Input carries the caller-owned fields of a quote.
type Input struct {
	ClientName string
	State      selection.State
	Totals     pricing.Result
	Tags       []string
	CreatedBy  string
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	ClientName string
	Tags       []string
	Limit      int
}

// Stats aggregates the with-margin totals of every saved quote.
type Stats struct {
	TotalQuotes       int     `json:"totalQuotes"`
	TotalSetupValue   float64 `json:"totalSetupValue"`
	TotalMonthlyValue float64 `json:"totalMonthlyValue"`
	AverageSetup      float64 `json:"averageSetup"`
	AverageMonthly    float64 `json:"averageMonthly"`
}

// Store persists quotes in a SQL database.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now for created and updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(database *sql.DB, driver string, opts ...Option) *Store {
	s := &Store{db: database, driver: driver, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) q(query string) string {
	return db.Rebind(s.driver, query)
}

// Save inserts a new quote and returns it with its generated id.
func (s *Store) Save(ctx context.Context, in Input) (Quote, error) {
	quote, err := newQuote(in)
	if err != nil {
		return Quote{}, err
	}
	now := s.now().UTC()
	quote.ID = uuid.NewString()
	quote.CreatedAt = now
	quote.UpdatedAt = now

	stateJSON, totalsJSON, tagsJSON, err := encodeQuote(quote)
	if err != nil {
		return Quote{}, err
	}

	if _, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO quotes (
			id,
			client_name,
			quote_data,
			totals_json,
			tags_json,
			setup_with_margin,
			monthly_with_margin,
			created_by,
			created_at,
			updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		quote.ID,
		quote.ClientName,
		stateJSON,
		totalsJSON,
		tagsJSON,
		quote.Totals.SetupWithMargin,
		quote.Totals.MonthlyWithMargin,
		quote.CreatedBy,
		formatTime(quote.CreatedAt),
		formatTime(quote.UpdatedAt),
	); err != nil {
		return Quote{}, fmt.Errorf("insert quote: %w", err)
	}

	return quote, nil
}

// Update replaces the content of an existing quote. Creation metadata is kept.
func (s *Store) Update(ctx context.Context, id string, in Input) (Quote, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}

	quote, err := newQuote(in)
	if err != nil {
		return Quote{}, err
	}
	quote.ID = existing.ID
	quote.CreatedBy = existing.CreatedBy
	quote.CreatedAt = existing.CreatedAt
	quote.UpdatedAt = s.now().UTC()

	stateJSON, totalsJSON, tagsJSON, err := encodeQuote(quote)
	if err != nil {
		return Quote{}, err
	}

	result, err := s.db.ExecContext(ctx, s.q(`
		UPDATE quotes
		SET
			client_name = ?,
			quote_data = ?,
			totals_json = ?,
			tags_json = ?,
			setup_with_margin = ?,
			monthly_with_margin = ?,
			updated_at = ?
		WHERE id = ?
	`),
		quote.ClientName,
		stateJSON,
		totalsJSON,
		tagsJSON,
		quote.Totals.SetupWithMargin,
		quote.Totals.MonthlyWithMargin,
		formatTime(quote.UpdatedAt),
		quote.ID,
	)
	if err != nil {
		return Quote{}, fmt.Errorf("update quote: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return Quote{}, err
	}

	return quote, nil
}

// List returns quotes newest first. ClientName matches case-insensitively as a
// substring; Tags must all be present on a quote for it to match.
func (s *Store) List(ctx context.Context, f Filter) ([]Quote, error) {
	name := strings.TrimSpace(f.ClientName)
	tags := normalizeTags(f.Tags)

	query := `
		SELECT id, client_name, quote_data, totals_json, tags_json, created_by, created_at, updated_at
		FROM quotes
		WHERE (? = '' OR LOWER(client_name) LIKE LOWER(?))
		ORDER BY created_at DESC, id DESC
	`
	args := []any{name, "%" + name + "%"}
	if f.Limit > 0 && len(tags) == 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]Quote, 0)
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		if !hasAllTags(quote.Tags, tags) {
			continue
		}
		quotes = append(quotes, quote)
		if f.Limit > 0 && len(quotes) == f.Limit {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

func (s *Store) Get(ctx context.Context, id string) (Quote, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, client_name, quote_data, totals_json, tags_json, created_by, created_at, updated_at
		FROM quotes
		WHERE id = ?
	`), id)

	quote, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, ErrNotFound
	}
	if err != nil {
		return Quote{}, err
	}
	return quote, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM quotes WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	return requireAffected(result)
}

// Pricer computes the totals of a selection against the current catalog.
type Pricer func(selection.State) pricing.Result

// Duplicate saves a copy of quote id named "<client> (Copia)" and tagged "copia".
// The copy is priced with price; a nil price keeps the stored totals.
func (s *Store) Duplicate(ctx context.Context, id, createdBy string, price Pricer) (Quote, error) {
	original, err := s.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}

	totals := original.Totals
	if price != nil {
		totals = price(original.State)
	}

	return s.Save(ctx, Input{
		ClientName: original.ClientName + copySuffix,
		State:      original.State,
		Totals:     totals,
		Tags:       append(slices.Clone(original.Tags), copyTag),
		CreatedBy:  createdBy,
	})
}

func (s *Store) Statistics(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(setup_with_margin), 0),
			COALESCE(SUM(monthly_with_margin), 0)
		FROM quotes
	`).Scan(&stats.TotalQuotes, &stats.TotalSetupValue, &stats.TotalMonthlyValue)
	if err != nil {
		return Stats{}, fmt.Errorf("query quote statistics: %w", err)
	}

	if stats.TotalQuotes > 0 {
		stats.AverageSetup = stats.TotalSetupValue / float64(stats.TotalQuotes)
		stats.AverageMonthly = stats.TotalMonthlyValue / float64(stats.TotalQuotes)
	}
	return stats, nil
}

func newQuote(in Input) (Quote, error) {
	name := strings.TrimSpace(in.ClientName)
	if name == "" {
		return Quote{}, ErrClientNameRequired
	}
	return Quote{
		ClientName: name,
		State:      in.State.Clone(),
		Totals:     in.Totals,
		Tags:       normalizeTags(in.Tags),
		CreatedBy:  strings.TrimSpace(in.CreatedBy),
	}, nil
}

func encodeQuote(quote Quote) (stateJSON, totalsJSON, tagsJSON string, err error) {
	state, err := json.Marshal(quote.State)
	if err != nil {
		return "", "", "", fmt.Errorf("encode quote state: %w", err)
	}
	totals, err := json.Marshal(quote.Totals)
	if err != nil {
		return "", "", "", fmt.Errorf("encode quote totals: %w", err)
	}
	tags, err := json.Marshal(quote.Tags)
	if err != nil {
		return "", "", "", fmt.Errorf("encode quote tags: %w", err)
	}
	return string(state), string(totals), string(tags), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuote(row scanner) (Quote, error) {
	var (
		quote                           Quote
		stateJSON, totalsJSON, tagsJSON string
		createdAt, updatedAt            string
	)
	if err := row.Scan(
		&quote.ID,
		&quote.ClientName,
		&stateJSON,
		&totalsJSON,
		&tagsJSON,
		&quote.CreatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, err
		}
		return Quote{}, fmt.Errorf("scan quote: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &quote.State); err != nil {
		return Quote{}, fmt.Errorf("decode quote %s state: %w", quote.ID, err)
	}
	quote.State = quote.State.Clone()
	if err := json.Unmarshal([]byte(totalsJSON), &quote.Totals); err != nil {
		return Quote{}, fmt.Errorf("decode quote %s totals: %w", quote.ID, err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &quote.Tags); err != nil {
		return Quote{}, fmt.Errorf("decode quote %s tags: %w", quote.ID, err)
	}
	if quote.Tags == nil {
		quote.Tags = []string{}
	}

	var err error
	if quote.CreatedAt, err = parseTime(createdAt); err != nil {
		return Quote{}, err
	}
	if quote.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Quote{}, err
	}
	return quote, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// normalizeTags trims, drops empties and removes duplicates, keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func hasAllTags(have, want []string) bool {
	for _, tag := range want {
		if !slices.Contains(have, tag) {
			return false
		}
	}
	return true
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", raw, err)
	}
	return t, nil
}
