package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a successful duckdb run with minimal fields.
func createTestRun(id string) Run {
	return Run{
		ID:            id,
		Kind:          KindQuery,
		Query:         "MATCH Person-[:KNOWS]->Person HOPS 2 RETURN src, dst",
		Fingerprint:   "fp-" + id,
		Backend:       "duckdb",
		CompiledQuery: "SELECT src, dst FROM GRAPH_TABLE (...)",
		Status:        StatusOK,
		RowCount:      3,
		StartedAt:     time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC),
		Duration:      1500 * time.Microsecond,
	}
}
