package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Simplici0/heynow-quoter/internal/db"
)

const (
	sqliteDialect   = "sqlite3"
	postgresDialect = "postgres"
	migrationsDir   = "sql"
)

//go:embed sql/*.sql
var embedded embed.FS

// goose keeps its dialect, filesystem and logger in package globals.
var (
	mu     sync.Mutex
	logger *zerolog.Logger
)

// SetLogger replaces the global zerolog logger used for migration output.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = &l
}

type gooseLogger struct {
	log zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Fatal().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// useLogger must be called with mu held.
func useLogger() {
	l := log.Logger
	if logger != nil {
		l = *logger
	}
	goose.SetLogger(gooseLogger{log: l.With().Str("component", "migrations").Logger()})
}

// Up runs all pending embedded SQL migrations for the given database driver.
func Up(database *sql.DB, driver string) error {
	dialect, err := dialectFor(driver)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	useLogger()
	goose.SetBaseFS(embedded)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(database, migrationsDir); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}

	return nil
}

// Version reports the schema version currently applied.
func Version(database *sql.DB, driver string) (int64, error) {
	dialect, err := dialectFor(driver)
	if err != nil {
		return 0, err
	}

	mu.Lock()
	defer mu.Unlock()

	useLogger()
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}

	version, err := goose.GetDBVersion(database)
	if err != nil {
		return 0, fmt.Errorf("read goose version: %w", err)
	}
	return version, nil
}

func dialectFor(driver string) (string, error) {
	switch driver {
	case db.DriverSQLite, "":
		return sqliteDialect, nil
	case db.DriverPostgres:
		return postgresDialect, nil
	default:
		return "", fmt.Errorf("no migration dialect for driver %q", driver)
	}
}
