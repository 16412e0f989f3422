package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/refguard/internal/ir"
)

// createTestStore creates a new store in a temp directory.
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

// createTestRun creates and stores a run record with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string) ir.RunRecord {
	t.Helper()
	run := ir.RunRecord{
		ID:            id,
		ManifestHash:  "test-hash",
		MaxDepth:      32,
		Order:         "declared",
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

// createTestIngestion builds an ingestion record for module with the given
// violation paths. Each path's first element is the referencer and its last
// the declarer.
func createTestIngestion(runID string, seq int64, module string, refs []string, paths ...[]string) ir.IngestionRecord {
	rec := ir.IngestionRecord{
		RunID:  runID,
		Seq:    seq,
		Module: ir.ModuleSpec{Name: module, References: refs},
	}
	for _, p := range paths {
		rec.Violations = append(rec.Violations, ir.NewViolation(p[0], p[len(p)-1], p))
	}
	return rec
}
