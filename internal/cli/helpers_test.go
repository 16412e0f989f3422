package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Core forbids App; App reaches Core through Lib.
const layeredManifest = `
module: Core: {
	cannot_be_referenced_by: ["App"]
}
module: Lib: {
	references: ["Core"]
}
module: App: {
	references: ["Lib"]
}
`

// Same shape, but Core only forbids Web, which does not exist.
const cleanManifest = `
module: Core: {
	cannot_be_referenced_by: ["Web"]
}
module: Lib: {
	references: ["Core"]
}
module: App: {
	references: ["Lib"]
}
`

// writeManifest writes src as modules.cue in a fresh directory.
func writeManifest(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "modules.cue"), []byte("package manifests\n"+src), 0644))
	return dir
}

// executeCommand runs the root command with args and returns stdout, stderr
// and the command error. The working directory is a temp dir so no
// refguard.yaml is picked up.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
