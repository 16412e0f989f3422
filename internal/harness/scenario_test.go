package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: transitive
description: "Main reaches Lib through Lib2"
max_depth: 8
run_id: fixed
steps:
  - ingest: Lib
    rules: [Main]
  - ingest: Main
    references: [Lib]
    expect:
      violations:
        - [Main, Lib]
      truncated: false
assertions:
  - type: violation_count
    count: 1
`))
	require.NoError(t, err)

	assert.Equal(t, "transitive", scenario.Name)
	assert.Equal(t, 8, scenario.MaxDepth)
	assert.Equal(t, "fixed", scenario.RunID)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, []string{"Main"}, scenario.Steps[0].Rules)
	require.NotNil(t, scenario.Steps[1].Expect)
	assert.Equal(t, [][]string{{"Main", "Lib"}}, scenario.Steps[1].Expect.Violations)
	require.NotNil(t, scenario.Steps[1].Expect.Truncated)
	assert.False(t, *scenario.Steps[1].Expect.Truncated)

	specs := scenario.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "Main", specs[1].Name)
	assert.Equal(t, []string{"Lib"}, specs[1].References)
}

func TestParseScenario_RejectsUnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "misspelled key"
steps:
  - ingest: A
assertion:
  - type: violation_count
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name:   "missing name",
			yaml:   "description: d\nsteps: [{ingest: A}]\nassertions: [{type: violation_count}]\n",
			errMsg: "name is required",
		},
		{
			name:   "missing description",
			yaml:   "name: n\nsteps: [{ingest: A}]\nassertions: [{type: violation_count}]\n",
			errMsg: "description is required",
		},
		{
			name:   "no steps",
			yaml:   "name: n\ndescription: d\nassertions: [{type: violation_count}]\n",
			errMsg: "steps list is required",
		},
		{
			name:   "no assertions",
			yaml:   "name: n\ndescription: d\nsteps: [{ingest: A}]\n",
			errMsg: "assertions list is required",
		},
		{
			name:   "negative depth",
			yaml:   "name: n\ndescription: d\nmax_depth: -1\nsteps: [{ingest: A}]\nassertions: [{type: violation_count}]\n",
			errMsg: "max_depth must be non-negative",
		},
		{
			name:   "empty ingest",
			yaml:   "name: n\ndescription: d\nsteps: [{references: [B]}]\nassertions: [{type: violation_count}]\n",
			errMsg: "steps[0]: ingest is required",
		},
		{
			name:   "short expected path",
			yaml:   "name: n\ndescription: d\nsteps: [{ingest: A, expect: {violations: [[A]]}}]\nassertions: [{type: violation_count}]\n",
			errMsg: "path needs at least two modules",
		},
		{
			name:   "expected path from other module",
			yaml:   "name: n\ndescription: d\nsteps: [{ingest: A, expect: {violations: [[B, A]]}}]\nassertions: [{type: violation_count}]\n",
			errMsg: "path must start at A",
		},
		{
			name:   "unknown assertion",
			yaml:   "name: n\ndescription: d\nsteps: [{ingest: A}]\nassertions: [{type: trace_order}]\n",
			errMsg: `unknown assertion type "trace_order"`,
		},
		{
			name:   "no_violation without filter",
			yaml:   "name: n\ndescription: d\nsteps: [{ingest: A}]\nassertions: [{type: no_violation}]\n",
			errMsg: "referencer or declarer is required",
		},
		{
			name:   "dropped_reference without reference",
			yaml:   "name: n\ndescription: d\nsteps: [{ingest: A}]\nassertions: [{type: dropped_reference, module: A}]\n",
			errMsg: "module and reference are required",
		},
		{
			name:   "violation_path too short",
			yaml:   "name: n\ndescription: d\nsteps: [{ingest: A}]\nassertions: [{type: violation_path, path: [A]}]\n",
			errMsg: "path needs at least two modules for violation_path",
		},
		{
			name:   "negative count",
			yaml:   "name: n\ndescription: d\nsteps: [{ingest: A}]\nassertions: [{type: stored_violations, count: -2}]\n",
			errMsg: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadScenario_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"name: n\ndescription: d\nsteps: [{ingest: A}]\nassertions: [{type: violation_count}]\n"), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "n", scenario.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}
