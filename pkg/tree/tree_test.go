package tree_test

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/ft/pkg/testutil"
	"github.com/vanderheijden86/ft/pkg/tree"
)

func TestBuildEmpty(t *testing.T) {
	tr, err := tree.Build(tree.NewListing())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Len() != 0 {
		t.Errorf("expected 0 nodes, got %d", tr.Len())
	}
	if len(tr.Roots()) != 0 {
		t.Errorf("expected no roots, got %d", len(tr.Roots()))
	}
}

func TestBuildNil(t *testing.T) {
	if _, err := tree.Build(nil); !errors.Is(err, tree.ErrNilListing) {
		t.Fatalf("expected ErrNilListing, got %v", err)
	}
}

func TestBuildSampleRepo(t *testing.T) {
	tr := testutil.SampleRepo(t)

	testutil.AssertPaths(t, tr, tr.Roots(), "src", "readme.md")

	src := testutil.MustLookup(t, tr, "src")
	idx := testutil.MustLookup(t, tr, "src/index.js")
	readme := testutil.MustLookup(t, tr, "readme.md")

	if n := tr.Node(src); n.Kind != tree.Container || n.Depth != 0 || n.Parent != tree.None {
		t.Errorf("unexpected src node: %+v", n)
	}
	if n := tr.Node(idx); n.Kind != tree.Leaf || n.Depth != 1 || n.Parent != src || n.Name != "index.js" {
		t.Errorf("unexpected index.js node: %+v", n)
	}
	if tr.Children(readme) != nil {
		t.Errorf("leaf should have nil children")
	}
	testutil.AssertPaths(t, tr, tr.Children(src), "src/index.js")
}

func TestSiblingOrder(t *testing.T) {
	tr := testutil.MustTree(t, "b.txt", "A.txt", "zeta/", "Alpha/", "a.txt")
	testutil.AssertPaths(t, tr, tr.Roots(), "Alpha", "zeta", "A.txt", "a.txt", "b.txt")
}

func TestEmptyContainerHasChildrenSlice(t *testing.T) {
	tr := testutil.MustTree(t, "empty/")
	id := testutil.MustLookup(t, tr, "empty")
	if tr.Children(id) == nil {
		t.Fatal("empty container should have a non-nil empty children slice")
	}
	if len(tr.Children(id)) != 0 {
		t.Fatalf("expected no children, got %d", len(tr.Children(id)))
	}
}

func TestPreOrderIDs(t *testing.T) {
	tr := testutil.MustTree(t, "a/", "a/b/", "a/b/c.go", "a/d.go", "e.go")

	var order []string
	tr.Walk(func(id tree.ID, n tree.Node) bool {
		if tr.Rank(id) != len(order) {
			t.Errorf("rank of %s = %d, want %d", n.Path, tr.Rank(id), len(order))
		}
		order = append(order, n.Path)
		return true
	})
	want := []string{"a", "a/b", "a/b/c.go", "a/d.go", "e.go"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}

	a := testutil.MustLookup(t, tr, "a")
	c := testutil.MustLookup(t, tr, "a/b/c.go")
	e := testutil.MustLookup(t, tr, "e.go")
	if !tr.IsAncestor(a, c) {
		t.Error("a should be an ancestor of a/b/c.go")
	}
	if tr.IsAncestor(a, e) {
		t.Error("a should not be an ancestor of e.go")
	}
	if !tr.Before(c, e) {
		t.Error("a/b/c.go should precede e.go")
	}
	first, end := tr.Descendants(a)
	if int(end-first) != 3 {
		t.Errorf("expected 3 descendants of a, got %d", end-first)
	}
}

func TestWalkSkipsSubtree(t *testing.T) {
	tr := testutil.MustTree(t, "a/", "a/x.go", "b.go")
	var seen []string
	tr.Walk(func(id tree.ID, n tree.Node) bool {
		seen = append(seen, n.Path)
		return n.Path != "a"
	})
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b.go" {
		t.Errorf("expected [a b.go], got %v", seen)
	}
}

func TestAncestors(t *testing.T) {
	tr := testutil.MustTree(t, "a/b/c/d.txt")
	d := testutil.MustLookup(t, tr, "a/b/c/d.txt")
	testutil.AssertPaths(t, tr, tr.Ancestors(d), "a/b/c", "a/b", "a")
}

func TestBuildMissingParent(t *testing.T) {
	l := &tree.Listing{Entries: map[string]tree.Entry{
		"src/index.js": {Path: "src/index.js", Kind: tree.Leaf},
	}}
	if _, err := tree.Build(l); !errors.Is(err, tree.ErrMissingParent) {
		t.Fatalf("expected ErrMissingParent, got %v", err)
	}
}

func TestBuildParentNotContainer(t *testing.T) {
	l := &tree.Listing{Entries: map[string]tree.Entry{
		"src":          {Path: "src", Kind: tree.Leaf},
		"src/index.js": {Path: "src/index.js", Kind: tree.Leaf},
	}}
	if _, err := tree.Build(l); !errors.Is(err, tree.ErrParentNotContainer) {
		t.Fatalf("expected ErrParentNotContainer, got %v", err)
	}
}

func TestListingAddImpliesParents(t *testing.T) {
	l := tree.NewListing()
	l.Add("./a/b/c.go", tree.Leaf)
	for _, p := range []string{"a", "a/b"} {
		if e, ok := l.Entries[p]; !ok || e.Kind != tree.Container {
			t.Errorf("expected implied container %q, got %+v", p, e)
		}
	}
	if _, ok := l.Entries["a/b/c.go"]; !ok {
		t.Error("expected cleaned path a/b/c.go")
	}
}

func TestListingContainerWins(t *testing.T) {
	l := tree.NewListing()
	l.Add("a", tree.Container)
	l.Add("a", tree.Leaf)
	if l.Entries["a"].Kind != tree.Container {
		t.Error("re-adding a container as leaf should keep it a container")
	}
}

func TestTruncatedFlag(t *testing.T) {
	l := testutil.Listing("big/")
	l.MarkTruncated("big")
	tr, err := tree.Build(l)
	if err != nil {
		t.Fatal(err)
	}
	id := testutil.MustLookup(t, tr, "big")
	if !tr.Node(id).Truncated {
		t.Error("expected truncated flag to survive Build")
	}
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"/":         "",
		"./a/":      "a",
		"a//b":      "a/b",
		`a\b\c.txt`: "a/b/c.txt",
	}
	for in, want := range tests {
		if got := tree.CleanPath(in); got != want {
			t.Errorf("CleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}
