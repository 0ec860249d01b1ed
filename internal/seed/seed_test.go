package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/db"
	"github.com/Simplici0/heynow-quoter/internal/migrations"
	"github.com/Simplici0/heynow-quoter/internal/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "seed-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database, db.DriverSQLite); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func TestRunIsIdempotent(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	cfg := Config{
		Driver:        db.DriverSQLite,
		AdminEmail:    "admin@heynow.test",
		AdminPassword: "12345",
		Catalog:       catalog.Default(),
	}

	for i := 0; i < 5; i++ {
		stats, err := Run(ctx, database, cfg)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 2 {
				t.Fatalf("expected 2 inserts in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM users WHERE email = ?`, "admin@heynow.test", 1)
	assertCount(t, database, `SELECT COUNT(*) FROM quotes WHERE client_name = ?`, DemoClientName, 1)

	var hash string
	if err := database.QueryRow(`SELECT password_hash FROM users WHERE email = ?`, "admin@heynow.test").Scan(&hash); err != nil {
		t.Fatalf("query admin hash: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("12345")); err != nil {
		t.Fatalf("expected admin hash to match password: %v", err)
	}
}

func TestRunSkipsAdminWithoutCredentials(t *testing.T) {
	database := openTestDB(t)

	stats, err := Run(context.Background(), database, Config{Driver: db.DriverSQLite})
	if err != nil {
		t.Fatalf("run seed: %v", err)
	}
	if stats.Inserts != 0 {
		t.Fatalf("expected no inserts, got %d", stats.Inserts)
	}
	assertCount(t, database, `SELECT COUNT(*) FROM users`, nil, 0)
}

func TestDemoQuoteIsPriced(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	if _, err := Run(ctx, database, Config{Driver: db.DriverSQLite, Catalog: catalog.Default()}); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	quotes, err := store.New(database, db.DriverSQLite).List(ctx, store.Filter{ClientName: DemoClientName})
	if err != nil {
		t.Fatalf("list quotes: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("expected 1 demo quote, got %d", len(quotes))
	}
	demo := quotes[0]
	if demo.State.ImplementationID == "" || demo.State.SessionPackageID == "" {
		t.Fatalf("demo state incomplete: %+v", demo.State)
	}
	if demo.Totals.SetupWithMargin <= 0 || demo.Totals.MonthlyWithMargin <= 0 {
		t.Fatalf("demo totals not computed: %+v", demo.Totals)
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
