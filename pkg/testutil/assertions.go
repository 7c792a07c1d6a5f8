package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/ft/pkg/tree"
)

// Paths maps node ids to their paths.
func Paths(t *tree.Tree, ids []tree.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = t.Node(id).Path
	}
	return out
}

// AssertPaths fails if ids do not resolve to exactly the expected paths, in order.
func AssertPaths(t *testing.T, tr *tree.Tree, ids []tree.ID, expected ...string) {
	t.Helper()
	got := Paths(tr, ids)
	if strings.Join(got, ",") != strings.Join(expected, ",") {
		t.Errorf("expected paths %v, got %v", expected, got)
	}
}

// MustLookup resolves a path or fails the test.
func MustLookup(t testing.TB, tr *tree.Tree, p string) tree.ID {
	t.Helper()
	id, ok := tr.Lookup(p)
	if !ok {
		t.Fatalf("path %q not in tree", p)
	}
	return id
}

// WriteFiles materializes paths under a temp directory (trailing slash =
// directory) and returns the directory.
func WriteFiles(t *testing.T, paths ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, p := range paths {
		full := filepath.Join(dir, filepath.FromSlash(strings.TrimSuffix(p, "/")))
		if strings.HasSuffix(p, "/") {
			if err := os.MkdirAll(full, 0755); err != nil {
				t.Fatalf("failed to create dir %s: %v", full, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", full, err)
		}
		if err := os.WriteFile(full, []byte(p), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", full, err)
		}
	}
	return dir
}
