// Package testing provides test helpers shared by the stockfolio packages.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/stockfolio/internal/database"
)

// NewTestDB creates a migrated SQLite database in a per-test temporary
// directory. The database is closed through t.Cleanup.
//
// name selects the schema: "stockfolio" applies stockfolio_schema.sql.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileLedger,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db
}

// NewLedgerDB is NewTestDB for the application schema
func NewLedgerDB(t *testing.T) *database.DB {
	t.Helper()
	return NewTestDB(t, "stockfolio")
}
