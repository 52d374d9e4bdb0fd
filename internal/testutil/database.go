package testutil

import (
	"path/filepath"
	"testing"

	"github.com/bigsql/pgadmin4/internal/database"
)

// NewTestDatabase opens a report index in a temporary directory. It is closed
// when the test completes.
func NewTestDatabase(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "reports.duckdb"), NewTestLogger(t))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return db
}
