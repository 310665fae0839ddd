package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/gym-admin/internal/persistence"
	"github.com/example/gym-admin/internal/persistence/sqlite"
)

// SQLiteHarness exposes a Store backed by a temporary SQLite file for
// integration-style tests.
type SQLiteHarness struct {
	Path    string
	Backend *sqlite.Backend
	Store   *persistence.Store

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a SQLite backend in a temporary
// directory. Close is registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "gymadmin.db")

	backend, err := sqlite.Open(context.Background(), path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Path:    path,
		Backend: backend,
		Store:   persistence.NewStore(backend),
		cleanup: func() {
			_ = backend.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
