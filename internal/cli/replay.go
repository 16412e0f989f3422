package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/refguard/internal/engine"
	"github.com/roach88/refguard/internal/ir"
	"github.com/roach88/refguard/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayMismatch describes one ingestion whose replayed outcome differs from
// the stored one.
type ReplayMismatch struct {
	Seq      int64  `json:"seq"`
	Module   string `json:"module"`
	Field    string `json:"field"` // "seq" | "violations" | "dropped" | "truncated"
	Stored   any    `json:"stored"`
	Replayed any    `json:"replayed"`
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string           `json:"run_id"`
	Ingestions    int              `json:"ingestions"`
	Violations    int              `json:"violations"`
	Deterministic bool             `json:"deterministic"`
	Mismatches    []ReplayMismatch `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-ingest stored runs and verify determinism",
		Long: `Re-ingest every stored module of a run, one at a time in sequence order,
into a fresh engine run with the stored depth bound, and check that each
ingestion yields the same violations, dropped references and truncation as
recorded.

Without --run every stored run is replayed.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  refguard replay --db ./refguard.db
  refguard replay --db ./refguard.db --run 0190a6f2-...
  refguard replay --db ./refguard.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	var runs []ir.RunRecord
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		runs = []ir.RunRecord{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
	}

	if len(runs) == 0 && opts.Format != "json" {
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	for _, run := range runs {
		runResult, err := replayRun(ctx, st, run, opts.logger(cmd))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeEngine, fmt.Sprintf("failed to replay run %s: %v", run.ID, err), nil)
		}
		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replayRun re-ingests a stored run sequentially and compares each outcome
// with the stored record.
func replayRun(ctx context.Context, st *store.Store, run ir.RunRecord, logger *slog.Logger) (ReplayRunResult, error) {
	records, err := st.ReadIngestions(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	fresh := engine.NewRun(
		engine.WithRunID(run.ID+"-replay"),
		engine.WithMaxDepth(run.MaxDepth),
		engine.WithLogger(logger),
	)
	defer fresh.Close()

	result := ReplayRunResult{RunID: run.ID, Ingestions: len(records), Deterministic: true}
	for _, rec := range records {
		res, err := fresh.Ingest(ctx, rec.Module)
		if err != nil {
			return ReplayRunResult{}, err
		}
		result.Violations += len(res.Violations)
		result.Mismatches = append(result.Mismatches, compareIngestion(rec, res)...)
	}

	result.Deterministic = len(result.Mismatches) == 0
	logger.Debug("run replayed", "run_id", run.ID, "ingestions", len(records), "mismatches", len(result.Mismatches))
	return result, nil
}

// compareIngestion reports how a replayed ingestion differs from its stored
// record. Violations are compared by content hash, in order.
func compareIngestion(rec ir.IngestionRecord, res engine.Result) []ReplayMismatch {
	var out []ReplayMismatch
	add := func(field string, stored, replayed any) {
		out = append(out, ReplayMismatch{
			Seq:      rec.Seq,
			Module:   rec.Module.Name,
			Field:    field,
			Stored:   stored,
			Replayed: replayed,
		})
	}

	if rec.Seq != res.Seq {
		add("seq", rec.Seq, res.Seq)
	}
	if stored, replayed := violationHashes(rec.Violations), violationHashes(res.Violations); !slices.Equal(stored, replayed) {
		add("violations", chains(rec.Violations), chains(res.Violations))
	}
	if !slices.Equal(nonNilNames(rec.Dropped), nonNilNames(res.Dropped)) {
		add("dropped", nonNilNames(rec.Dropped), nonNilNames(res.Dropped))
	}
	if rec.Truncated != res.Truncated {
		add("truncated", rec.Truncated, res.Truncated)
	}
	return out
}

func violationHashes(vs []ir.Violation) []string {
	hashes := make([]string, len(vs))
	for i, v := range vs {
		hashes[i] = ir.MustViolationHash(v)
	}
	return hashes
}

func chains(vs []ir.Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Chain()
	}
	return out
}

func nonNilNames(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := formatter.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)
		fmt.Fprintf(w, "  Ingestions: %d, violations: %d\n", run.Ingestions, run.Violations)
		for _, m := range run.Mismatches {
			fmt.Fprintf(w, "  [%d] %s %s: stored %v, replayed %v\n", m.Seq, m.Module, m.Field, m.Stored, m.Replayed)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
