package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/refguard/internal/compiler"
	"github.com/roach88/refguard/internal/config"
	"github.com/roach88/refguard/internal/engine"
	"github.com/roach88/refguard/internal/ir"
	"github.com/roach88/refguard/internal/runner"
	"github.com/roach88/refguard/internal/store"
)

// CheckOptions holds flags for the check command. Values that also live in
// the config file are read back through config.Load, so only RunID is
// stored here.
type CheckOptions struct {
	*RootOptions
	RunID string
}

// CheckReport is the JSON payload of the check command.
type CheckReport struct {
	RunID        string             `json:"run_id"`
	ManifestHash string             `json:"manifest_hash"`
	Order        string             `json:"order"`
	MaxDepth     int                `json:"max_depth"`
	Modules      int                `json:"modules"`
	Waves        int                `json:"waves"`
	Violations   []CheckViolation   `json:"violations"`
	Dropped      []DroppedReference `json:"dropped,omitempty"`
	Truncated    []string           `json:"truncated,omitempty"`
}

// CheckViolation is one violation with the ingestion that produced it.
type CheckViolation struct {
	ir.Violation
	Seq     int64  `json:"seq"`
	Message string `json:"message"`
}

// DroppedReference lists references a module made to modules that were not
// ingested yet.
type DroppedReference struct {
	Module     string   `json:"module"`
	References []string `json:"references"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <manifests-dir>",
		Short: "Check module manifests for forbidden references",
		Long: `Compile the module manifests, ingest every module into a fresh run and
report each forbidden reference with its reference chain.

Modules are ingested in waves: with --order topo (default) dependencies come
first and each wave runs concurrently; with --order declared modules are
ingested one by one in manifest order. Exits 1 when violations are found.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().Int("max-depth", engine.DefaultMaxDepth, "closure depth bound")
	cmd.Flags().Int("concurrency", runner.DefaultConcurrency, "modules ingested in parallel within a wave")
	cmd.Flags().String("order", string(runner.OrderTopo), "ingestion order (topo|declared)")
	cmd.Flags().String("db", "", "SQLite database to persist the run to")
	cmd.Flags().String("metrics-file", "", "write Prometheus text exposition of the run's metrics to this file")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "use this run ID instead of a generated UUIDv7")

	return cmd
}

func runCheck(ctx context.Context, opts *CheckOptions, manifestsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger(cmd)

	cfg, err := config.Load(opts.Config, cmd.Flags())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	if cfg.File != "" {
		formatter.VerboseLog("Using config file %s", cfg.File)
	}

	specs, err := loadCheckedModules(manifestsDir, formatter, logger)
	if err != nil {
		return err
	}

	waves, err := runner.Plan(specs, cfg.RunOrder())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	manifestHash, err := ir.ManifestHash(specs)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	runOpts := []engine.RunOption{
		engine.WithMaxDepth(cfg.MaxDepth),
		engine.WithLogger(logger),
	}
	if opts.RunID != "" {
		runOpts = append(runOpts, engine.WithRunID(opts.RunID))
	}
	run := engine.NewRun(runOpts...)
	defer run.Close()

	formatter.VerboseLog("Run %s: %d module(s) in %d wave(s), order %s, max depth %d",
		run.ID(), len(specs), len(waves), cfg.Order, cfg.MaxDepth)

	runnerOpts := []runner.Option{
		runner.WithConcurrency(cfg.Concurrency),
		runner.WithLogger(logger),
	}

	if cfg.Database != "" {
		st, err := store.Open(cfg.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
		}
		defer st.Close()

		err = st.WriteRun(ctx, ir.RunRecord{
			ID:            run.ID(),
			ManifestHash:  manifestHash,
			MaxDepth:      run.MaxDepth(),
			Order:         cfg.Order,
			EngineVersion: ir.EngineVersion,
			IRVersion:     ir.IRVersion,
		})
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		runnerOpts = append(runnerOpts, runner.WithSink(storeSink(st, run.ID())))
	}

	results, err := runner.New(run, runnerOpts...).Run(ctx, waves)
	if err != nil {
		return formatter.Fail(ExitCommandError, runErrorCode(err), err.Error(), nil)
	}

	if cfg.MetricsFile != "" {
		if err := writeMetricsFile(cfg.MetricsFile, run.Gatherer()); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing metrics file: %v", err), nil)
		}
		formatter.VerboseLog("Wrote metrics to %s", cfg.MetricsFile)
	}

	report := buildCheckReport(run, manifestHash, cfg, len(specs), len(waves), results)
	return outputCheckReport(formatter, report)
}

// loadCheckedModules compiles and validates the manifests. Cycles are logged
// as warnings; validation errors stop the check.
func loadCheckedModules(dir string, formatter *OutputFormatter, logger *slog.Logger) ([]ir.ModuleSpec, error) {
	loadResult, loadErrors := LoadModules(dir, LoadModeCollectAll)
	if len(loadErrors) > 0 {
		return nil, outputCompileErrors(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	if errs := compiler.ValidateAll(loadResult.Modules); len(errs) > 0 {
		return nil, outputValidationErrors(formatter, errs, ExitCommandError)
	}
	for _, w := range compiler.AnalyzeCycles(loadResult.Modules) {
		logger.Warn("reference cycle in manifest", "path", w.Path)
	}
	return loadResult.Modules, nil
}

// storeSink persists each wave's ingestions in plan order.
func storeSink(st *store.Store, runID string) runner.Sink {
	return runner.SinkFunc(func(ctx context.Context, _ int, results []engine.Result) error {
		for _, res := range results {
			if _, err := st.WriteIngestion(ctx, res.Record(runID)); err != nil {
				return &sinkError{err: err}
			}
		}
		return nil
	})
}

// sinkError marks a failure to persist an ingestion.
type sinkError struct {
	err error
}

func (e *sinkError) Error() string { return e.err.Error() }
func (e *sinkError) Unwrap() error { return e.err }

// runErrorCode classifies an error returned by the runner.
func runErrorCode(err error) string {
	var se *sinkError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeInterrupted
	case errors.As(err, &se):
		return ErrCodeStore
	default:
		return ErrCodeEngine
	}
}

// writeMetricsFile writes g in the Prometheus text format, for the node
// exporter textfile collector. The file is replaced atomically.
func writeMetricsFile(path string, g prometheus.Gatherer) error {
	if g == nil {
		return errors.New("run has no metrics registry")
	}
	var families []*dto.MetricFamily
	families, err := g.Gather()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func buildCheckReport(run *engine.Run, manifestHash string, cfg *config.Config, modules, waves int, results []engine.Result) CheckReport {
	report := CheckReport{
		RunID:        run.ID(),
		ManifestHash: manifestHash,
		Order:        cfg.Order,
		MaxDepth:     run.MaxDepth(),
		Modules:      modules,
		Waves:        waves,
		Violations:   []CheckViolation{},
	}
	for _, res := range results {
		for _, v := range res.Violations {
			report.Violations = append(report.Violations, CheckViolation{
				Violation: v,
				Seq:       res.Seq,
				Message:   v.Message(),
			})
		}
		if len(res.Dropped) > 0 {
			report.Dropped = append(report.Dropped, DroppedReference{
				Module:     res.Spec.Name,
				References: res.Dropped,
			})
		}
		if res.Truncated {
			report.Truncated = append(report.Truncated, res.Spec.Name)
		}
	}
	return report
}

func outputCheckReport(formatter *OutputFormatter, report CheckReport) error {
	failed := len(report.Violations) > 0

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report, RunID: report.RunID}
		if failed {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ir.DiagnosticCode,
				Message: fmt.Sprintf("%d forbidden reference(s) found", len(report.Violations)),
			}
		}
		if err := formatter.Encode(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, d := range report.Dropped {
			fmt.Fprintf(w, "! %s: dropped reference(s) to %v (not ingested yet)\n", d.Module, d.References)
		}
		for _, name := range report.Truncated {
			fmt.Fprintf(w, "! %s: reference closure truncated at depth %d\n", name, report.MaxDepth)
		}
		if failed {
			fmt.Fprintf(w, "✗ %d forbidden reference(s) in %d module(s) (run %s)\n\n",
				len(report.Violations), report.Modules, report.RunID)
			for _, v := range report.Violations {
				fmt.Fprintf(w, "  [%s] %s\n", v.Code, v.Message)
			}
		} else {
			fmt.Fprintf(w, "✓ No forbidden references in %d module(s) (run %s)\n",
				report.Modules, report.RunID)
		}
	}

	if failed {
		return NewExitError(ExitFailure, fmt.Sprintf("%d forbidden reference(s) found", len(report.Violations)))
	}
	return nil
}
