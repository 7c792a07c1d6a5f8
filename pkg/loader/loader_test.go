package loader_test

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/ft/pkg/loader"
	"github.com/vanderheijden86/ft/pkg/testutil"
	"github.com/vanderheijden86/ft/pkg/tree"
)

func collectWarnings(dst *[]string) loader.ParseOptions {
	return loader.ParseOptions{WarningHandler: func(msg string) { *dst = append(*dst, msg) }}
}

func kinds(l *tree.Listing) map[string]tree.Kind {
	out := make(map[string]tree.Kind, len(l.Entries))
	for p, e := range l.Entries {
		out[p] = e.Kind
	}
	return out
}

func sortedPaths(l *tree.Listing) []string {
	out := make([]string, 0, len(l.Entries))
	for p := range l.Entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// git-trees responses
// =============================================================================

const treesResponse = `{
  "sha": "9fb037999f264ba9a7fc6274d15fa3ae2ab98312",
  "url": "https://api.github.com/repos/octocat/Hello-World/trees/9fb037999f264ba9a7fc6274d15fa3ae2ab98312",
  "tree": [
    {"path": "src", "mode": "040000", "type": "tree", "sha": "a"},
    {"path": "src/index.js", "mode": "100644", "type": "blob", "size": 30, "sha": "b"},
    {"path": "readme.md", "mode": "100644", "type": "blob", "size": 12, "sha": "c"},
    {"path": "vendor/lib", "mode": "160000", "type": "commit", "sha": "d"}
  ],
  "truncated": false
}`

func TestParseTreesResponse(t *testing.T) {
	var warnings []string
	l, err := loader.Parse(strings.NewReader(treesResponse), collectWarnings(&warnings))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, map[string]tree.Kind{
		"src":          tree.Container,
		"src/index.js": tree.Leaf,
		"readme.md":    tree.Leaf,
		"vendor":       tree.Container,
		"vendor/lib":   tree.Leaf,
	}, kinds(l))

	tr, err := tree.Build(l)
	require.NoError(t, err)
	assert.Equal(t, 5, tr.Len())
}

func TestParseTreesResponseWithBOM(t *testing.T) {
	l, err := loader.Parse(strings.NewReader("\xEF\xBB\xBF"+treesResponse), loader.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, tree.Leaf, l.Entries["src/index.js"].Kind)
	assert.Equal(t, 5, l.Len())
}

func TestParseTreesResponseTruncated(t *testing.T) {
	in := testutil.ToTreesResponse(testutil.Listing("a/", "a/x.go", "b/", "c.md"), true)

	var warnings []string
	l, err := loader.ParseTreesResponse(strings.NewReader(in), collectWarnings(&warnings))
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "truncated")
	assert.Contains(t, warnings[0], "9fb0379")
	assert.False(t, l.Entries["a"].Truncated, "a has children")
	assert.True(t, l.Entries["b"].Truncated, "b was listed without children")
}

func TestParseTreesResponseBadJSON(t *testing.T) {
	_, err := loader.Parse(strings.NewReader(`{"tree": [ {"path": `), loader.ParseOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding trees response")
}

func TestParseTreesResponseUnknownType(t *testing.T) {
	in := `{"sha":"x","tree":[{"path":"a","type":"socket"},{"path":"b","type":"blob"}]}`
	var warnings []string
	l, err := loader.Parse(strings.NewReader(in), collectWarnings(&warnings))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, sortedPaths(l))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `unknown entry type "socket"`)
}

// =============================================================================
// JSONL and plain listings
// =============================================================================

func TestParseJSONL(t *testing.T) {
	in := "\xEF\xBB\xBF" + testutil.ToJSONL(testutil.Listing("src/", "src/index.js", "readme.md"))
	l, err := loader.Parse(strings.NewReader(in), loader.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"readme.md", "src", "src/index.js"}, sortedPaths(l))
	assert.Equal(t, tree.Container, l.Entries["src"].Kind)
}

func TestParseJSONLTruncatedFlag(t *testing.T) {
	in := `{"path":"vendor","type":"tree","truncated":true}
{"path":"src","type":"tree"}
{"path":"a.go","type":"blob","truncated":true}
`
	l, err := loader.Parse(strings.NewReader(in), loader.ParseOptions{})
	require.NoError(t, err)
	assert.True(t, l.Entries["vendor"].Truncated)
	assert.False(t, l.Entries["src"].Truncated)
	assert.False(t, l.Entries["a.go"].Truncated, "only containers can be truncated")
}

func TestParseJSONLSkipsMalformedLines(t *testing.T) {
	in := `{"path":"a.go","type":"blob"}
{"path":"broken
{"path":"","type":"blob"}

{"path":"dir","type":"dir"}
`
	var warnings []string
	l, err := loader.Parse(strings.NewReader(in), collectWarnings(&warnings))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "dir"}, sortedPaths(l))
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "line 2")
	assert.Contains(t, warnings[0], "malformed JSON")
	assert.Contains(t, warnings[1], "line 3")
}

func TestParsePlainPaths(t *testing.T) {
	in := `# git ls-files style
./src/index.js
src/util/
docs\guide.md
readme.md
`
	l, err := loader.Parse(strings.NewReader(in), loader.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]tree.Kind{
		"src":           tree.Container,
		"src/index.js":  tree.Leaf,
		"src/util":      tree.Container,
		"docs":          tree.Container,
		"docs/guide.md": tree.Leaf,
		"readme.md":     tree.Leaf,
	}, kinds(l))
}

func TestParseLongLineSkipped(t *testing.T) {
	in := "short.go\n" + strings.Repeat("x", 200) + "\nafter.go\n"
	var warnings []string
	opts := collectWarnings(&warnings)
	opts.BufferSize = 64

	l, err := loader.Parse(strings.NewReader(in), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"after.go", "short.go"}, sortedPaths(l))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "line too long")
}

func TestParseEmpty(t *testing.T) {
	_, err := loader.Parse(strings.NewReader("\n\n"), loader.ParseOptions{})
	assert.ErrorIs(t, err, loader.ErrEmptyListing)

	l, err := loader.Parse(strings.NewReader(""), loader.ParseOptions{AllowEmpty: true})
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestParseIgnore(t *testing.T) {
	in := testutil.ToJSONL(testutil.Listing(
		"node_modules/", "node_modules/left-pad/index.js", "src/", "src/app.js", "src/app.min.js", "build/out/x.js",
	))
	l, err := loader.Parse(strings.NewReader(in), loader.ParseOptions{Ignore: []string{"node_modules", "*.min.js", "build/out"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "src", "src/app.js"}, sortedPaths(l))
}

func TestParseInvalidIgnorePattern(t *testing.T) {
	_, err := loader.Parse(strings.NewReader("a.go\n"), loader.ParseOptions{Ignore: []string{"[unclosed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ignore pattern")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "listing.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(testutil.ToJSONL(testutil.QuickBalanced(2, 2))), 0644))

	l, err := loader.LoadFile(path, loader.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, testutil.QuickBalanced(2, 2).Len(), l.Len())

	_, err = loader.LoadFile(filepath.Join(dir, "missing.jsonl"), loader.ParseOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no listing found")
}

// =============================================================================
// Ignore
// =============================================================================

func TestIgnoreMatch(t *testing.T) {
	ig, err := loader.NewIgnore([]string{"*.log", ".git", "docs/internal", " ", "/tmp/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"*.log", ".git", "docs/internal", "tmp"}, ig.Patterns())

	tests := []struct {
		path string
		want bool
	}{
		{"app.log", true},
		{"logs/app.log", true},
		{".git", true},
		{".git/HEAD", true},
		{"sub/.git/config", true},
		{"docs/internal", true},
		{"docs/internal/a.md", true},
		{"docs/public/a.md", false},
		{"other/docs/internal", false},
		{"tmp", true},
		{"src/main.go", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ig.Match(tt.path), tt.path)
	}

	var nilIgnore *loader.Ignore
	assert.False(t, nilIgnore.Match("anything"))
}

// =============================================================================
// WalkDir
// =============================================================================

func TestWalkDir(t *testing.T) {
	dir := testutil.WriteFiles(t, "src/index.js", "src/empty/", "readme.md", ".git/HEAD", "build/a.o")

	l, err := loader.WalkDir(dir, loader.WalkOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "build/a.o", "readme.md", "src", "src/empty", "src/index.js"}, sortedPaths(l))
	assert.Equal(t, tree.Container, l.Entries["src/empty"].Kind)

	l, err = loader.WalkDir(dir, loader.WalkOptions{Ignore: []string{"build"}})
	require.NoError(t, err)
	assert.NotContains(t, sortedPaths(l), "build")
	assert.Contains(t, sortedPaths(l), ".git/HEAD", "explicit patterns replace the defaults")
}

func TestWalkDirMaxEntries(t *testing.T) {
	dir := testutil.WriteFiles(t, "a/", "b/1.go", "b/2.go", "c/1.go")
	var warnings []string
	l, err := loader.WalkDir(dir, loader.WalkOptions{
		MaxEntries:     3,
		WarningHandler: func(m string) { warnings = append(warnings, m) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "b/1.go"}, sortedPaths(l))
	assert.False(t, l.Entries["a"].Truncated, "a is empty and was read in full")
	assert.True(t, l.Entries["b"].Truncated, "b/2.go was cut off")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "stopped at 3 entries")
}

func TestWalkDirErrors(t *testing.T) {
	_, err := loader.WalkDir(filepath.Join(t.TempDir(), "nope"), loader.WalkOptions{})
	require.Error(t, err)

	file := filepath.Join(testutil.WriteFiles(t, "f.txt"), "f.txt")
	_, err = loader.WalkDir(file, loader.WalkOptions{})
	assert.ErrorIs(t, err, loader.ErrNotDirectory)
}
