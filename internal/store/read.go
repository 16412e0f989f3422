package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/refguard/internal/ir"
	"github.com/roach88/refguard/internal/queryir"
	"github.com/roach88/refguard/internal/querysql"
)

// StoredViolation is a violation as persisted, with its position in the run.
type StoredViolation struct {
	RunID   string
	Seq     int64
	Ordinal int
	Hash    string
	ir.Violation
}

// ViolationFilter narrows QueryViolations. Empty fields match everything.
type ViolationFilter struct {
	RunID      string
	Referencer string
	Declarer   string
}

var violationColumns = []string{
	"run_id", "seq", "ordinal", "violation_hash", "code", "referencer", "declarer", "path",
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, manifest_hash, max_depth, run_order, engine_version, ir_version
		FROM runs
		WHERE id = ?
	`, id)

	var run ir.RunRecord
	err := row.Scan(&run.ID, &run.ManifestHash, &run.MaxDepth, &run.Order, &run.EngineVersion, &run.IRVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.RunRecord{}, err
		}
		return ir.RunRecord{}, fmt.Errorf("read run: %w", err)
	}
	return run, nil
}

// ListRuns returns every stored run ordered by ID. Run IDs are UUIDv7, so
// this is also creation order.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, manifest_hash, max_depth, run_order, engine_version, ir_version
		FROM runs
		ORDER BY id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		var run ir.RunRecord
		if err := rows.Scan(&run.ID, &run.ManifestHash, &run.MaxDepth, &run.Order, &run.EngineVersion, &run.IRVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadIngestions returns every ingestion of a run with its violations,
// ordered by seq ASC. Violations keep their ordinal order.
//
// Returns an empty slice (not nil) if the run has no ingestions.
func (s *Store) ReadIngestions(ctx context.Context, runID string) ([]ir.IngestionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, module, module_references, module_rules, dropped, truncated
		FROM ingestions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query ingestions: %w", err)
	}

	records := []ir.IngestionRecord{}
	index := make(map[int64]int)
	for rows.Next() {
		rec, err := scanIngestion(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[rec.Seq] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate ingestions: %w", err)
	}
	rows.Close()

	violations, err := s.QueryViolations(ctx, ViolationFilter{RunID: runID})
	if err != nil {
		return nil, err
	}
	for _, v := range violations {
		i, ok := index[v.Seq]
		if !ok {
			return nil, fmt.Errorf("violation at seq %d has no ingestion", v.Seq)
		}
		records[i].Violations = append(records[i].Violations, v.Violation)
	}

	return records, nil
}

// QueryViolations returns stored violations matching filter, ordered by
// run_id, seq and ordinal.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryViolations(ctx context.Context, filter ViolationFilter) ([]StoredViolation, error) {
	q := queryir.Select{
		From:    "violations",
		Columns: violationColumns,
		Filter: queryir.Where(
			queryir.EqualsIf("run_id", filter.RunID),
			queryir.EqualsIf("referencer", filter.Referencer),
			queryir.EqualsIf("declarer", filter.Declarer),
		),
	}

	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile violation query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	out := []StoredViolation{}
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}
	return out, nil
}

// LastSeq returns the highest ingestion seq stored for a run, or 0.
func (s *Store) LastSeq(ctx context.Context, runID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM ingestions WHERE run_id = ?
	`, runID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

func scanIngestion(rows *sql.Rows) (ir.IngestionRecord, error) {
	var (
		rec                              ir.IngestionRecord
		refsJSON, rulesJSON, droppedJSON string
		truncated                        int
	)
	if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Module.Name, &refsJSON, &rulesJSON, &droppedJSON, &truncated); err != nil {
		return ir.IngestionRecord{}, fmt.Errorf("scan ingestion: %w", err)
	}

	var err error
	if rec.Module.References, err = unmarshalNames(refsJSON); err != nil {
		return ir.IngestionRecord{}, fmt.Errorf("ingestion seq %d references: %w", rec.Seq, err)
	}
	if rec.Module.Rules, err = unmarshalNames(rulesJSON); err != nil {
		return ir.IngestionRecord{}, fmt.Errorf("ingestion seq %d rules: %w", rec.Seq, err)
	}
	if rec.Dropped, err = unmarshalNames(droppedJSON); err != nil {
		return ir.IngestionRecord{}, fmt.Errorf("ingestion seq %d dropped: %w", rec.Seq, err)
	}
	rec.Truncated = truncated != 0
	rec.Violations = []ir.Violation{}
	return rec, nil
}

func scanViolation(rows *sql.Rows) (StoredViolation, error) {
	var (
		v        StoredViolation
		pathJSON string
	)
	if err := rows.Scan(&v.RunID, &v.Seq, &v.Ordinal, &v.Hash, &v.Code, &v.Referencer, &v.Declarer, &pathJSON); err != nil {
		return StoredViolation{}, fmt.Errorf("scan violation: %w", err)
	}
	path, err := unmarshalNames(pathJSON)
	if err != nil {
		return StoredViolation{}, fmt.Errorf("violation %d/%d path: %w", v.Seq, v.Ordinal, err)
	}
	v.Path = path
	return v, nil
}
