package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/refguard/internal/ir"
	"github.com/roach88/refguard/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database   string
	RunID      string
	Referencer string
	Declarer   string
}

// HistoryViolation is a stored violation as reported by history.
type HistoryViolation struct {
	RunID      string   `json:"run_id"`
	Seq        int64    `json:"seq"`
	Ordinal    int      `json:"ordinal"`
	Hash       string   `json:"hash"`
	Code       string   `json:"code"`
	Referencer string   `json:"referencer"`
	Declarer   string   `json:"declarer"`
	Path       []string `json:"path"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs or query stored violations",
		Long: `Without filters, list every run stored in the database. With --run,
--referencer or --declarer, list the stored violations matching all of them.

Examples:
  refguard history --db ./refguard.db
  refguard history --db ./refguard.db --run 0190a6f2-...
  refguard history --db ./refguard.db --declarer Core --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "only violations of this run")
	cmd.Flags().StringVar(&opts.Referencer, "referencer", "", "only violations committed by this module")
	cmd.Flags().StringVar(&opts.Declarer, "declarer", "", "only violations of this module's rules")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	if opts.RunID == "" && opts.Referencer == "" && opts.Declarer == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		return outputRuns(formatter, runs)
	}

	stored, err := st.QueryViolations(ctx, store.ViolationFilter{
		RunID:      opts.RunID,
		Referencer: opts.Referencer,
		Declarer:   opts.Declarer,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	violations := make([]HistoryViolation, 0, len(stored))
	for _, sv := range stored {
		violations = append(violations, HistoryViolation{
			RunID:      sv.RunID,
			Seq:        sv.Seq,
			Ordinal:    sv.Ordinal,
			Hash:       sv.Hash,
			Code:       sv.Code,
			Referencer: sv.Referencer,
			Declarer:   sv.Declarer,
			Path:       sv.Path,
		})
	}
	return outputHistoryViolations(formatter, violations)
}

func outputRuns(formatter *OutputFormatter, runs []ir.RunRecord) error {
	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%d run(s):\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "  %s  order=%s max_depth=%d manifest=%s\n",
			r.ID, r.Order, r.MaxDepth, shortHash(r.ManifestHash))
	}
	return nil
}

func outputHistoryViolations(formatter *OutputFormatter, violations []HistoryViolation) error {
	if formatter.Format == "json" {
		return formatter.Success(violations)
	}

	if len(violations) == 0 {
		fmt.Fprintln(formatter.Writer, "No matching violations.")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%d violation(s):\n", len(violations))
	for _, v := range violations {
		fmt.Fprintf(formatter.Writer, "  %s [%d.%d] %s %s\n",
			v.RunID, v.Seq, v.Ordinal, v.Code, ir.Violation{Path: v.Path}.Chain())
	}
	return nil
}

// shortHash returns the first 12 hex digits of a content hash.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
