package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/db"
	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/selection"
	"github.com/Simplici0/heynow-quoter/internal/store"
)

const (
	DemoClientName = "Demo HeyNow"
	demoTag        = "demo"
	demoCreatedBy  = "seed"
)

// Config contains the values required by startup seed.
type Config struct {
	Driver        string
	AdminEmail    string
	AdminPassword string
	// Catalog, when set, enables the demo quote.
	Catalog *catalog.Catalog
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, database *sql.DB, cfg Config) (Stats, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(ctx, tx, cfg.Driver, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	if cfg.Catalog != nil {
		if err := ensureDemoQuote(ctx, store.New(database, cfg.Driver), cfg.Catalog, &stats); err != nil {
			return Stats{}, err
		}
	}

	return stats, nil
}

func seedAdmin(ctx context.Context, tx *sql.Tx, driver, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, db.Rebind(driver, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`), email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, db.Rebind(driver, `INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)`), email, hash, createdAt); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

// HashPassword returns the bcrypt hash stored for user passwords.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func ensureDemoQuote(ctx context.Context, quotes *store.Store, c *catalog.Catalog, stats *Stats) error {
	existing, err := quotes.List(ctx, store.Filter{ClientName: DemoClientName, Tags: []string{demoTag}, Limit: 1})
	if err != nil {
		return fmt.Errorf("check demo quote existence: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	state, err := demoState(c)
	if err != nil {
		return fmt.Errorf("build demo quote: %w", err)
	}

	if _, err := quotes.Save(ctx, store.Input{
		ClientName: DemoClientName,
		State:      state,
		Totals:     pricing.Compute(c, state),
		Tags:       []string{demoTag},
		CreatedBy:  demoCreatedBy,
	}); err != nil {
		return fmt.Errorf("insert demo quote: %w", err)
	}
	stats.Inserts++
	return nil
}

// demoState selects the first implementation, integration tier and session
// package the catalog offers.
func demoState(c *catalog.Catalog) (selection.State, error) {
	var updates []selection.Update
	if len(c.Implementations) > 0 {
		updates = append(updates, selection.SetImplementation{ID: c.Implementations[0].ID})
	}
	for _, tier := range c.Integrations {
		if !c.IsNoneIntegration(tier.ID) {
			updates = append(updates, selection.SetIntegration{ID: tier.ID})
			break
		}
	}
	if len(c.SessionPackages) > 0 {
		pkg := c.SessionPackages[0]
		updates = append(updates,
			selection.SetSessionModel{ID: pkg.ModelID},
			selection.SetSessionPackage{ID: pkg.ID},
		)
	}

	s := selection.New(c)
	for _, u := range updates {
		next, err := selection.Apply(s, u)
		if err != nil {
			return selection.State{}, err
		}
		s = next
	}
	return s, nil
}
