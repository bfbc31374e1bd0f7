// internal/db/db.go
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/adhikaar-ai/adhikaar/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const defaultBusyTimeoutMillis = 5000

// DB is a SQLite-backed key-value store holding the persisted theme state.
type DB struct {
	*sql.DB
}

// New opens a SQLite database for the given data source name, ensures a
// busy timeout is set in the DSN, and applies embedded migrations.
// It returns an error if opening the database or running migrations fails.
func New(dataSourceName string) (*DB, error) {
	dataSourceName = ensureBusyTimeoutDSN(dataSourceName)
	sqlDB, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps UPSERTs serialized.
	sqlDB.SetMaxOpenConns(1)

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return &DB{DB: sqlDB}, nil
}

// NewFromConfig creates the database directory if needed and opens the
// configured SQLite file. Only the "sqlite" driver is backed by this package.
func NewFromConfig(cfg *config.Config) (*DB, error) {
	if cfg.Database.Driver != config.DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Filename), 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}
	return New(cfg.Database.Filename)
}

// ensureBusyTimeoutDSN adds `_busy_timeout` to the DSN unless it is already present.
func ensureBusyTimeoutDSN(dataSourceName string) string {
	if strings.Contains(dataSourceName, "_busy_timeout=") {
		return dataSourceName
	}
	sep := "?"
	if strings.Contains(dataSourceName, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", dataSourceName, sep, defaultBusyTimeoutMillis)
}

// runMigrations applies the embedded SQL migrations from migrationsFS.
// A "no change" result is not treated as an error.
func runMigrations(db *sql.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// OpenMigrator opens the SQLite file without applying anything and returns a
// migrate instance over the embedded migrations. Closing the instance closes
// the database.
func OpenMigrator(dataSourceName string) (*migrate.Migrate, error) {
	sqlDB, err := sql.Open("sqlite3", ensureBusyTimeoutDSN(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	m, err := newMigrator(sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return m, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("could not create source: %w", err)
	}

	m, err := migrate.NewWithInstance(
		"iofs", source,
		"sqlite3", driver,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}
	return m, nil
}
