package testutil

import (
	"path/filepath"
	"testing"

	"github.com/adhikaar-ai/adhikaar/internal/db"
	"github.com/adhikaar-ai/adhikaar/internal/store"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// NewThemeStore returns a theme store with the embedded presets on top of a
// fresh test database.
func NewThemeStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()

	presets, err := db.ParseThemesFile()
	if err != nil {
		t.Fatalf("parse presets: %v", err)
	}
	themes, err := store.New(NewTestDB(t), presets, opts...)
	if err != nil {
		t.Fatalf("create theme store: %v", err)
	}
	return themes
}
