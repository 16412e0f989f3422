package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/refguard/internal/ir"
	"github.com/roach88/refguard/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Module   string // optional - filter to one module
}

// TraceEvent is one ingestion in the trace timeline.
type TraceEvent struct {
	Seq        int64          `json:"seq"`
	Module     string         `json:"module"`
	References []string       `json:"references"`
	Rules      []string       `json:"cannot_be_referenced_by"`
	Dropped    []string       `json:"dropped,omitempty"`
	Truncated  bool           `json:"truncated,omitempty"`
	Violations []ir.Violation `json:"violations"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      ir.RunRecord `json:"run"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Ingestions int `json:"ingestions"`
	Modules    int `json:"modules"`
	Violations int `json:"violations"`
	Dropped    int `json:"dropped"`
	Truncated  int `json:"truncated"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the ingestion timeline of a stored run",
		Long: `Show every ingestion of a stored run in sequence order: the module as it
was supplied, the references dropped because their target was not ingested
yet, whether a closure hit the depth bound, and the violations found.

Examples:
  refguard trace --db ./refguard.db --run 0190a6f2-...
  refguard trace --db ./refguard.db --run 0190a6f2-... --module App
  refguard trace --db ./refguard.db --run 0190a6f2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Module, "module", "", "only show ingestions of this module")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	records, err := st.ReadIngestions(ctx, opts.RunID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	result := TraceResult{
		Run:      run,
		Timeline: buildTimeline(records, opts.Module),
	}
	result.Stats = traceStats(result.Timeline)

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

// buildTimeline converts stored ingestions to timeline events, keeping only
// moduleFilter's ingestions when it is set.
func buildTimeline(records []ir.IngestionRecord, moduleFilter string) []TraceEvent {
	timeline := []TraceEvent{}
	for _, rec := range records {
		if moduleFilter != "" && rec.Module.Name != moduleFilter {
			continue
		}
		timeline = append(timeline, TraceEvent{
			Seq:        rec.Seq,
			Module:     rec.Module.Name,
			References: rec.Module.References,
			Rules:      rec.Module.Rules,
			Dropped:    rec.Dropped,
			Truncated:  rec.Truncated,
			Violations: rec.Violations,
		})
	}
	return timeline
}

func traceStats(timeline []TraceEvent) TraceStats {
	stats := TraceStats{Ingestions: len(timeline)}
	modules := make(map[string]bool)
	for _, ev := range timeline {
		modules[ev.Module] = true
		stats.Violations += len(ev.Violations)
		stats.Dropped += len(ev.Dropped)
		if ev.Truncated {
			stats.Truncated++
		}
	}
	stats.Modules = len(modules)
	return stats
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Order: %s, max depth %d, engine %s\n", result.Run.Order, result.Run.MaxDepth, result.Run.EngineVersion)
	if verbose {
		fmt.Fprintf(w, "Manifest: %s\n", result.Run.ManifestHash)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no ingestions)")
	}
	for _, ev := range result.Timeline {
		formatTimelineEvent(w, ev, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Ingestions: %d\n", result.Stats.Ingestions)
	fmt.Fprintf(w, "  Modules:    %d\n", result.Stats.Modules)
	fmt.Fprintf(w, "  Violations: %d\n", result.Stats.Violations)
	fmt.Fprintf(w, "  Dropped:    %d\n", result.Stats.Dropped)
	fmt.Fprintf(w, "  Truncated:  %d\n", result.Stats.Truncated)
}

func formatTimelineEvent(w io.Writer, ev TraceEvent, verbose bool) {
	fmt.Fprintf(w, "  [%d] %s -> %s\n", ev.Seq, ev.Module, formatNames(ev.References))
	if verbose && len(ev.Rules) > 0 {
		fmt.Fprintf(w, "       Forbids: %s\n", formatNames(ev.Rules))
	}
	if len(ev.Dropped) > 0 {
		fmt.Fprintf(w, "       Dropped: %s\n", formatNames(ev.Dropped))
	}
	if ev.Truncated {
		fmt.Fprintln(w, "       Truncated at depth bound")
	}
	for _, v := range ev.Violations {
		fmt.Fprintf(w, "       %s %s\n", v.Code, v.Chain())
	}
}

func formatNames(names []string) string {
	return "[" + strings.Join(names, ", ") + "]"
}
