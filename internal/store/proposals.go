package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Proposal is a generated commercial text attached to a saved quote.
type Proposal struct {
	ID        string    `json:"id"`
	QuoteID   string    `json:"quoteId"`
	Model     string    `json:"model"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// SaveProposal stores body for quote quoteID. The quote must exist.
func (s *Store) SaveProposal(ctx context.Context, quoteID, model, body string) (Proposal, error) {
	if _, err := s.Get(ctx, quoteID); err != nil {
		return Proposal{}, err
	}

	proposal := Proposal{
		ID:        uuid.NewString(),
		QuoteID:   quoteID,
		Model:     model,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO proposals (id, quote_id, model, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), proposal.ID, proposal.QuoteID, proposal.Model, proposal.Body, formatTime(proposal.CreatedAt)); err != nil {
		return Proposal{}, fmt.Errorf("insert proposal: %w", err)
	}
	return proposal, nil
}

// LatestProposal returns the most recent proposal generated for quoteID.
func (s *Store) LatestProposal(ctx context.Context, quoteID string) (Proposal, error) {
	var (
		proposal  Proposal
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, quote_id, model, body, created_at
		FROM proposals
		WHERE quote_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`), quoteID).Scan(&proposal.ID, &proposal.QuoteID, &proposal.Model, &proposal.Body, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Proposal{}, ErrNotFound
	}
	if err != nil {
		return Proposal{}, fmt.Errorf("query latest proposal: %w", err)
	}

	if proposal.CreatedAt, err = parseTime(createdAt); err != nil {
		return Proposal{}, err
	}
	return proposal, nil
}
