package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/refguard/internal/ir"
)

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a duplicate run ID is
// silently ignored.
func (s *Store) WriteRun(ctx context.Context, run ir.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, manifest_hash, max_depth, run_order, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ManifestHash,
		run.MaxDepth,
		run.Order,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteIngestion inserts an ingestion and its violations in one transaction.
// Returns inserted=false when (run_id, seq) is already stored; the existing
// rows are left untouched.
//
// The run referenced by rec.RunID must exist (foreign key constraint).
func (s *Store) WriteIngestion(ctx context.Context, rec ir.IngestionRecord) (inserted bool, err error) {
	refsJSON, err := marshalNames(rec.Module.References)
	if err != nil {
		return false, fmt.Errorf("write ingestion: %w", err)
	}
	rulesJSON, err := marshalNames(rec.Module.Rules)
	if err != nil {
		return false, fmt.Errorf("write ingestion: %w", err)
	}
	droppedJSON, err := marshalNames(rec.Dropped)
	if err != nil {
		return false, fmt.Errorf("write ingestion: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write ingestion: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO ingestions
		(run_id, seq, module, module_references, module_rules, dropped, truncated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		rec.RunID,
		rec.Seq,
		rec.Module.Name,
		refsJSON,
		rulesJSON,
		droppedJSON,
		boolToInt(rec.Truncated),
	)
	if err != nil {
		return false, fmt.Errorf("write ingestion: insert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write ingestion: rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	for i, v := range rec.Violations {
		if err := writeViolation(ctx, tx, rec.RunID, rec.Seq, i, v); err != nil {
			return false, fmt.Errorf("write ingestion: violation %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write ingestion: commit: %w", err)
	}
	return true, nil
}

func writeViolation(ctx context.Context, tx *sql.Tx, runID string, seq int64, ordinal int, v ir.Violation) error {
	hash, err := ir.ViolationHash(v)
	if err != nil {
		return err
	}
	pathJSON, err := marshalNames(v.Path)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO violations
		(run_id, seq, ordinal, violation_hash, code, referencer, declarer, path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		seq,
		ordinal,
		hash,
		v.Code,
		v.Referencer,
		v.Declarer,
		pathJSON,
	)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
