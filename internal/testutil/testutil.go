// Package testutil provides shared test helpers for setting up vaults and
// journal databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/secondbrain/internal/journal"
	"github.com/starford/secondbrain/internal/vault"
)

// Logger returns a logger that discards all output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestJournal creates a temporary SQLite journal that is automatically
// cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "secondbrain-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault with the given excluded folders.
func TestVault(t *testing.T, excluded ...string) *vault.Vault {
	t.Helper()
	v, err := vault.New(t.TempDir(), excluded)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
