package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/refguard/internal/ir"
	"github.com/roach88/refguard/internal/store"
)

func sampleResult() *Result {
	return &Result{
		Pass:  true,
		RunID: "run-1",
		Trace: []TraceEvent{
			{Seq: 1, Module: "App", Dropped: []string{"Later"}, Violations: [][]string{}},
			{Seq: 2, Module: "Lib", Violations: [][]string{}},
			{Seq: 3, Module: "Main", Violations: [][]string{{"Main", "Lib2", "Lib"}, {"Main", "Core"}}},
		},
	}
}

func TestAssertViolationCount(t *testing.T) {
	result := sampleResult()

	assert.NoError(t, assertViolationCount(result, Assertion{Count: 2}))

	err := assertViolationCount(result, Assertion{Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 1 violations")
	assert.Contains(t, err.Error(), "Actual: 2 violations")
	assert.Contains(t, err.Error(), "[3] Main Main->Lib2->Lib Main->Core")
}

func TestAssertViolationPath(t *testing.T) {
	result := sampleResult()

	assert.NoError(t, assertViolationPath(result, Assertion{Path: []string{"Main", "Core"}}))

	err := assertViolationPath(result, Assertion{Path: []string{"Main", "Lib"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "violation with path Main->Lib")
}

func TestAssertNoViolation(t *testing.T) {
	result := sampleResult()

	assert.NoError(t, assertNoViolation(result, Assertion{Referencer: "App"}))
	assert.NoError(t, assertNoViolation(result, Assertion{Referencer: "Main", Declarer: "App"}))

	err := assertNoViolation(result, Assertion{Declarer: "Core"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found Main->Core")
}

func TestAssertDroppedReference(t *testing.T) {
	result := sampleResult()

	assert.NoError(t, assertDroppedReference(result, Assertion{Module: "App", Reference: "Later"}))
	assert.Error(t, assertDroppedReference(result, Assertion{Module: "Lib", Reference: "Later"}))
}

func TestAssertStoredViolations(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.WriteRun(ctx, ir.RunRecord{ID: "run-1", ManifestHash: "h", MaxDepth: 32, Order: "declared"}))
	_, err = st.WriteIngestion(ctx, ir.IngestionRecord{
		RunID:  "run-1",
		Seq:    1,
		Module: ir.ModuleSpec{Name: "Main"},
		Violations: []ir.Violation{
			ir.NewViolation("Main", "Lib", []string{"Main", "Lib"}),
		},
	})
	require.NoError(t, err)

	actx := &AssertionContext{Store: st, Ctx: ctx, RunID: "run-1"}
	assert.NoError(t, assertStoredViolations(actx, Assertion{Declarer: "Lib", Count: 1}))
	assert.NoError(t, assertStoredViolations(actx, Assertion{Declarer: "Other", Count: 0}))

	err = assertStoredViolations(actx, Assertion{Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: 1 stored violations")
}

func TestEvaluateAssertions(t *testing.T) {
	result := sampleResult()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertViolationCount, Count: 2},
		{Type: AssertViolationPath, Path: []string{"X", "Y"}},
		{Type: AssertStoredViolations, Count: 0},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "violation_path")
	assert.Contains(t, errs[1], "stored_violations requires database context")
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
}
