package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := NewRootCommand(BuildInfo{Version: "test", Commit: "abc", Date: "today"})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommandHelp(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands:")
	for _, sub := range []string{"extract", "batch", "watch", "profiles", "jobs"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCommandVersion(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "test (commit: abc, built: today)")
}

func TestProfilesList(t *testing.T) {
	out, err := run(t, "profiles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "invoice-summary")
	assert.Contains(t, out, "invoice ")
}

func TestProfilesShow(t *testing.T) {
	out, err := run(t, "profiles", "show", "invoice")
	require.NoError(t, err)
	assert.Contains(t, out, "name: invoice\n")
	assert.Contains(t, out, "final_total")

	out, err = run(t, "profiles", "show", "--profile", "invoice-summary")
	require.NoError(t, err)
	assert.Contains(t, out, "name: invoice-summary\n")

	_, err = run(t, "profiles", "show", "nope")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestProfilesValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: mini
fields:
  - name: total
    pattern: 'Total:\s*([\d.]+)'
derived:
  - name: doubled
    op: sum
    inputs: [total, total]
`), 0o600))

	out, err := run(t, "profiles", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, `profile "mini" is valid: 1 fields, 1 derived`)

	require.NoError(t, os.WriteFile(path, []byte("name: bad\nfields:\n  - name: x\n    pattern: '('\n"), 0o600))
	_, err = run(t, "profiles", "validate", path)
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestInvalidConfigIsExitCode2(t *testing.T) {
	_, err := run(t, "profiles", "list", "--raster-dpi", "10")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))

	cfg := filepath.Join(t.TempDir(), "invoicex.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("output:\n  json_layout: csv\n"), 0o600))
	_, err = run(t, "--config", cfg, "profiles", "list")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestJobsRequiresLedger(t *testing.T) {
	_, err := run(t, "jobs")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestJobsListsEmptyLedger(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "ledger.db")
	out, err := run(t, "jobs", "--store-driver", "sqlite", "--store-dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
}

func TestBatchReportsUnsupportedDocument(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("hello"), 0o600))

	out, err := run(t, "batch", notes, "--output", filepath.Join(dir, "out"))
	require.ErrorIs(t, err, errDocumentsFailed)
	assert.Equal(t, 1, ExitCode(err))
	assert.Contains(t, out, "- Failures: 1")
	assert.Contains(t, out, notes)
}
