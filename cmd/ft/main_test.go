package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/ft/internal/datasource"
	"github.com/vanderheijden86/ft/pkg/testutil"
	"github.com/vanderheijden86/ft/pkg/version"
)

var sampleFiles = []string{"src/index.js", "src/lib/util.go", "readme.md", ".git/HEAD"}

// runFT executes the root command in-process with an isolated config home.
func runFT(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(datasource.SourceEnvVar, "")

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestLsCollapsed(t *testing.T) {
	dir := testutil.WriteFiles(t, sampleFiles...)

	out, _, err := runFT(t, "ls", dir)
	require.NoError(t, err)
	assert.Equal(t, "src/\nreadme.md\n", out, ".git is ignored by default")
}

func TestLsExpandAllAndDepth(t *testing.T) {
	dir := testutil.WriteFiles(t, sampleFiles...)

	out, _, err := runFT(t, "ls", "--expand-all", dir)
	require.NoError(t, err)
	assert.Equal(t, "src/\n  lib/\n    util.go\n  index.js\nreadme.md\n", out)

	out, _, err = runFT(t, "ls", "--expand-depth", "1", dir)
	require.NoError(t, err)
	assert.Equal(t, "src/\n  lib/\n  index.js\nreadme.md\n", out)
}

func TestLsQuery(t *testing.T) {
	dir := testutil.WriteFiles(t, sampleFiles...)

	out, _, err := runFT(t, "ls", "-q", "UTIL", dir)
	require.NoError(t, err)
	assert.Equal(t, "src/\n  lib/\n    util.go\n", out)

	out, _, err = runFT(t, "ls", "-q", "zzz", dir)
	require.NoError(t, err)
	assert.Equal(t, "No results found.\n", out)
}

func TestLsIgnoreFlagReplacesDefaults(t *testing.T) {
	dir := testutil.WriteFiles(t, sampleFiles...)

	out, _, err := runFT(t, "ls", "--ignore", "src", dir)
	require.NoError(t, err)
	assert.Equal(t, ".git/\nreadme.md\n", out)
}

func TestLsMetrics(t *testing.T) {
	dir := testutil.WriteFiles(t, sampleFiles...)

	_, stderr, err := runFT(t, "ls", "--metrics", dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "METRIC")
	assert.Contains(t, stderr, "visible_recompute")
}

func TestLsMissingSource(t *testing.T) {
	_, _, err := runFT(t, "ls", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestBrowseFallsBackToPlainWithoutTerminal(t *testing.T) {
	dir := testutil.WriteFiles(t, sampleFiles...)

	out, _, err := runFT(t, "browse", "--expand-depth", "1", dir)
	require.NoError(t, err)
	assert.Equal(t, "src/\n  lib/\n  index.js\nreadme.md\n", out)

	out, _, err = runFT(t, "-q", "index", dir)
	require.NoError(t, err)
	assert.Equal(t, "src/\n  index.js\n", out)
}

func TestBrowseRejectsBadActivate(t *testing.T) {
	dir := testutil.WriteFiles(t, sampleFiles...)

	_, _, err := runFT(t, "browse", "--activate", "launch", dir)
	assert.Error(t, err)
}

func TestExportJSONLToStdout(t *testing.T) {
	dir := testutil.WriteFiles(t, "src/index.js", "readme.md")

	out, _, err := runFT(t, "export", dir)
	require.NoError(t, err)
	assert.Equal(t,
		`{"path":"readme.md","type":"blob"}`+"\n"+
			`{"path":"src","type":"tree"}`+"\n"+
			`{"path":"src/index.js","type":"blob"}`+"\n",
		out)
}

func TestExportSQLiteThenBrowseIt(t *testing.T) {
	dir := testutil.WriteFiles(t, "src/index.js", "readme.md")
	db := filepath.Join(t.TempDir(), "listing.db")

	_, stderr, err := runFT(t, "export", "-o", db, dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Wrote 3 entries")

	out, _, err := runFT(t, "ls", "--expand-all", db)
	require.NoError(t, err)
	assert.Equal(t, "src/\n  index.js\nreadme.md\n", out)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644))
	_, stderr, err = runFT(t, "export", "-o", db, dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Changes since last export: +1 -0 ~0 (4 entries)")
	assert.Contains(t, stderr, "+ new.txt")
}

func TestExportSnapshotAndBest(t *testing.T) {
	dir := testutil.WriteFiles(t, "a.go")

	_, _, err := runFT(t, "export", "--snapshot", dir)
	require.NoError(t, err)
	snap := filepath.Join(dir, datasource.SnapshotDir, "listing.db")
	require.FileExists(t, snap)

	out, _, err := runFT(t, "ls", dir)
	require.NoError(t, err)
	assert.Equal(t, "a.go\n", out, "the snapshot folder is not listed")

	// The snapshot keeps the old state while the directory moves on.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("b"), 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(snap, future, future))
	out, _, err = runFT(t, "ls", "--best", dir)
	require.NoError(t, err)
	assert.Equal(t, "a.go\n", out)

	out, _, err = runFT(t, "ls", dir)
	require.NoError(t, err)
	assert.Equal(t, "a.go\nb.go\n", out)
}

func TestExportErrors(t *testing.T) {
	dir := testutil.WriteFiles(t, "a.go")
	file := filepath.Join(dir, "a.go")

	_, _, err := runFT(t, "export", "-f", "sqlite", dir)
	assert.ErrorContains(t, err, "--output")

	_, _, err = runFT(t, "export", "-f", "xml", dir)
	assert.ErrorContains(t, err, "unknown format")

	_, _, err = runFT(t, "export", "--snapshot", file)
	assert.ErrorContains(t, err, "directory")
}

func TestConfiguredSourceName(t *testing.T) {
	dir := testutil.WriteFiles(t, "docs/guide.md")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "sources:\n  - name: docs\n    path: " + dir + "\nui:\n  expand_depth: 1\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	out, _, err := runFT(t, "--config", cfgPath, "ls", "docs")
	require.NoError(t, err)
	assert.Equal(t, "docs/\n  guide.md\n", out)

	out, _, err = runFT(t, "--config", cfgPath, "sources", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "Configured:")
	assert.Contains(t, out, "docs\t"+dir)
	assert.Contains(t, out, "* "+dir)
}

func TestBadConfigFallsBackToDefaults(t *testing.T) {
	dir := testutil.WriteFiles(t, "a.go")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("ui: [unclosed"), 0644))

	out, stderr, err := runFT(t, "--config", cfgPath, "ls", dir)
	require.NoError(t, err)
	assert.Equal(t, "a.go\n", out)
	assert.Contains(t, stderr, "Using default settings")
}

func TestSourcesJSON(t *testing.T) {
	dir := testutil.WriteFiles(t, "a.go")

	out, _, err := runFT(t, "sources", "--json", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"discovered"`)
	assert.Contains(t, out, `"type": "dir"`)
}

func TestVersion(t *testing.T) {
	out, _, err := runFT(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ft "+version.Version+"\n", out)

	out, _, err = runFT(t, "--version")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, version.Version))
}

func TestFormatFor(t *testing.T) {
	tests := map[string]string{
		"":             formatJSONL,
		"out.jsonl":    formatJSONL,
		"out.DB":       formatSQLite,
		"x/y.sqlite":   formatSQLite,
		"x/y.sqlite3":  formatSQLite,
		"listing.json": formatJSONL,
	}
	for in, want := range tests {
		assert.Equal(t, want, formatFor(in), in)
	}
}

func writeHooks(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, datasource.SnapshotDir, "hooks.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestExportRunsHooks(t *testing.T) {
	dir := testutil.WriteFiles(t, "a.go", "b.go")
	marker := filepath.Join(t.TempDir(), "marker")
	writeHooks(t, dir, `
hooks:
  post-export:
    - name: record
      command: echo "$FT_ENTRY_COUNT $FT_EXPORT_FORMAT" > `+marker+`
`)
	out := filepath.Join(t.TempDir(), "l.jsonl")

	_, stderr, err := runFT(t, "export", "-o", out, dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Hooks: 1 succeeded, 0 failed")
	got, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "2 jsonl\n", string(got))
}

func TestExportPreHookFailureCancels(t *testing.T) {
	dir := testutil.WriteFiles(t, "a.go")
	writeHooks(t, dir, "hooks:\n  pre-export:\n    - name: gate\n      command: exit 3\n")
	out := filepath.Join(t.TempDir(), "l.db")

	_, stderr, err := runFT(t, "export", "-o", out, dir)
	assert.ErrorContains(t, err, `pre-export hook "gate" failed`)
	assert.Contains(t, stderr, "1 failed")
	assert.NoFileExists(t, out)

	_, _, err = runFT(t, "export", "--no-hooks", "-o", out, dir)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestLsWorkspace(t *testing.T) {
	web := testutil.WriteFiles(t, "index.html")
	api := testutil.WriteFiles(t, "main.go")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "sources:\n  - name: web\n    path: " + web + "\n  - name: api\n    path: " + api + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	out, _, err := runFT(t, "--config", cfgPath, "ls", "--workspace", "--expand-all")
	require.NoError(t, err)
	assert.Equal(t, "api/\n  main.go\nweb/\n  index.html\n", out)

	out, _, err = runFT(t, "--config", cfgPath, "-w", "-q", "main")
	require.NoError(t, err)
	assert.Equal(t, "api/\n  main.go\n", out)

	_, _, err = runFT(t, "ls", "--workspace")
	assert.ErrorContains(t, err, "needs sources")
}
