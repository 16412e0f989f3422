package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidManifest(t *testing.T) {
	dir := writeManifest(t, layeredManifest)

	out, _, err := executeCommand(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 3 module(s) valid")
	assert.NotContains(t, out, "!")
}

func TestValidateReportsCycleWarnings(t *testing.T) {
	dir := writeManifest(t, `
module: A: { references: ["B"] }
module: B: { references: ["A"] }
module: C: { references: ["A"] }
`)

	out, _, err := executeCommand(t, "validate", dir)
	require.NoError(t, err, "cycles are warnings")
	assert.Contains(t, out, "! ")
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "✓ All 3 module(s) valid")

	out, _, err = executeCommand(t, "validate", dir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Warnings, 1)
	assert.Equal(t, []string{"A", "B", "A"}, resp.Data.Warnings[0].Path)
}

func TestValidateInvalidManifest(t *testing.T) {
	dir := writeManifest(t, `
module: Core: {
	references: ["Util", "Util"]
	cannot_be_referenced_by: ["Core"]
}
`)

	out, _, err := executeCommand(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "[E103] Core.references")
	assert.Contains(t, out, "[E106] Core.cannot_be_referenced_by")
}

func TestValidateInvalidManifestJSON(t *testing.T) {
	dir := writeManifest(t, `module: Core: { references: ["Core"] }`)

	out, _, err := executeCommand(t, "validate", dir, "--format", "json")
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Error  *CLIError        `json:"error"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E107", resp.Error.Code)
}

func TestValidateCompileErrorsBecomeValidationErrors(t *testing.T) {
	dir := writeManifest(t, `module: Core: { depends_on: ["Util"] }`)

	out, _, err := executeCommand(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "[E014] load")
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, _, err := executeCommand(t, "validate", "/nonexistent/manifests")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
