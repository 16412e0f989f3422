package harness

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/roach88/refguard/internal/engine"
	"github.com/roach88/refguard/internal/ir"
	"github.com/roach88/refguard/internal/runner"
	"github.com/roach88/refguard/internal/store"
	"github.com/roach88/refguard/internal/testutil"
)

// Harness executes one scenario against a live engine run and store.
type Harness struct {
	store  *store.Store
	run    *engine.Run
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh engine run and a fresh in-memory database.
//
// Execution flow:
//  1. Create in-memory store and engine run with a fixed run ID
//  2. Record the run (manifest hash over all steps)
//  3. Ingest each step, persist it, check its expect clause
//  4. Evaluate assertions against the trace and the store
//
// The returned error covers infrastructure failures only; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := testutil.DiscardLogger()
	opts := []engine.RunOption{
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithLogger(logger),
	}
	if scenario.MaxDepth > 0 {
		opts = append(opts, engine.WithMaxDepth(scenario.MaxDepth))
	}
	run := engine.NewRun(opts...)
	defer run.Close()

	manifestHash, err := ir.ManifestHash(scenario.Specs())
	if err != nil {
		return nil, fmt.Errorf("failed to hash scenario modules: %w", err)
	}
	if err := st.WriteRun(ctx, ir.RunRecord{
		ID:            run.ID(),
		ManifestHash:  manifestHash,
		MaxDepth:      run.MaxDepth(),
		Order:         string(runner.OrderDeclared),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	h := &Harness{store: st, run: run, logger: logger}

	result := NewResult(run.ID())
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
		RunID: run.ID(),
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSteps ingests every step in order and checks expect clauses.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		res, err := h.run.Ingest(ctx, step.Spec())
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Ingest, err)
		}

		if _, err := h.store.WriteIngestion(ctx, res.Record(h.run.ID())); err != nil {
			return fmt.Errorf("step %d (%s): failed to persist ingestion: %w", i, step.Ingest, err)
		}

		result.AddIngestionTrace(res)

		if step.Expect != nil {
			for _, msg := range checkExpect(i, step, res) {
				result.AddError(msg)
			}
		}

		h.logger.Info("step ingested",
			"step", i,
			"module", step.Ingest,
			"seq", res.Seq,
			"violations", len(res.Violations),
		)
	}
	return nil
}

// checkExpect compares one ingestion outcome with its expect clause.
func checkExpect(index int, step Step, res engine.Result) []string {
	var errs []string

	got := make([][]string, 0, len(res.Violations))
	for _, v := range res.Violations {
		got = append(got, v.Path)
	}
	want := step.Expect.Violations
	if want == nil {
		want = [][]string{}
	}
	if !reflect.DeepEqual(got, want) {
		errs = append(errs, fmt.Sprintf("steps[%d] (%s): expected violations %v, got %v",
			index, step.Ingest, want, got))
	}

	if step.Expect.Dropped != nil && !equalNames(step.Expect.Dropped, res.Dropped) {
		errs = append(errs, fmt.Sprintf("steps[%d] (%s): expected dropped %v, got %v",
			index, step.Ingest, step.Expect.Dropped, res.Dropped))
	}

	if step.Expect.Truncated != nil && *step.Expect.Truncated != res.Truncated {
		errs = append(errs, fmt.Sprintf("steps[%d] (%s): expected truncated=%t, got %t",
			index, step.Ingest, *step.Expect.Truncated, res.Truncated))
	}

	return errs
}

// equalNames compares name lists, treating nil and empty as equal.
func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
