package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/refguard/internal/ir"
	"github.com/roach88/refguard/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRun(t *testing.T, opts ...RunOption) *Run {
	t.Helper()
	opts = append([]RunOption{WithLogger(discardLogger()), WithRunID("run-test")}, opts...)
	r := NewRun(opts...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func mod(name string, refs []string, rules ...string) ir.ModuleSpec {
	return ir.ModuleSpec{Name: name, References: refs, Rules: rules}
}

func mustIngest(t *testing.T, r *Run, spec ir.ModuleSpec) Result {
	t.Helper()
	res, err := r.Ingest(context.Background(), spec)
	require.NoError(t, err)
	return res
}

// ingestChain ingests M0..M(n-1) where M0 declares rules and each Mi
// references M(i-1).
func ingestChain(t *testing.T, r *Run, n int, rules ...string) {
	t.Helper()
	for _, spec := range testutil.Chain("M", n, rules...) {
		mustIngest(t, r, spec)
	}
}
