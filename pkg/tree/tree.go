// Package tree holds the immutable file hierarchy the explorer renders.
//
// Nodes live in an arena indexed by ID. IDs are assigned in depth-first
// pre-order, so an ID is also the node's position in the total ordering and
// every subtree occupies a contiguous ID range.
package tree

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/ft/pkg/metrics"
)

// Kind is the closed set of node variants.
type Kind int

const (
	Leaf      Kind = iota // file-like, never has children
	Container             // directory-like, may have children
)

func (k Kind) String() string {
	switch k {
	case Leaf:
		return "leaf"
	case Container:
		return "container"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ID indexes a node in a Tree's arena.
type ID int

// None is the absent node (no parent, no focus).
const None ID = -1

var (
	// ErrMissingParent is returned when an entry's parent directory is not
	// part of the listing.
	ErrMissingParent = errors.New("parent not in listing")
	// ErrParentNotContainer is returned when an entry's parent is a leaf.
	ErrParentNotContainer = errors.New("parent is not a container")
	// ErrNilListing is returned by Build(nil).
	ErrNilListing = errors.New("nil listing")
)

// Node is one file-system entry.
type Node struct {
	Path      string
	Name      string // final path segment
	Kind      Kind
	Parent    ID   // None for top-level nodes
	Children  []ID // nil for leaves, display order
	Depth     int  // 0 for top-level nodes
	Truncated bool
	end       ID // one past the last descendant
}

// IsContainer reports whether the node may own children.
func (n Node) IsContainer() bool { return n.Kind == Container }

// Tree is the read-only hierarchy built from a Listing.
type Tree struct {
	nodes  []Node
	roots  []ID
	byPath map[string]ID
}

// Build constructs the arena from a listing. Siblings are ordered with
// containers first, then by case-insensitive name.
func Build(l *Listing) (*Tree, error) {
	if l == nil {
		return nil, ErrNilListing
	}
	defer metrics.Timer(metrics.TreeBuild)()

	childrenOf := make(map[string][]string, len(l.Entries)/2+1)
	for p := range l.Entries {
		parent := parentPath(p)
		if parent != "" {
			pe, ok := l.Entries[parent]
			if !ok {
				return nil, fmt.Errorf("%s: %w", p, ErrMissingParent)
			}
			if pe.Kind != Container {
				return nil, fmt.Errorf("%s: %w", p, ErrParentNotContainer)
			}
		}
		childrenOf[parent] = append(childrenOf[parent], p)
	}
	for _, kids := range childrenOf {
		sortSiblings(kids, l.Entries)
	}

	t := &Tree{
		nodes:  make([]Node, 0, len(l.Entries)),
		byPath: make(map[string]ID, len(l.Entries)),
	}

	var emit func(p string, parent ID, depth int) ID
	emit = func(p string, parent ID, depth int) ID {
		e := l.Entries[p]
		id := ID(len(t.nodes))
		t.nodes = append(t.nodes, Node{
			Path:      p,
			Name:      baseName(p),
			Kind:      e.Kind,
			Parent:    parent,
			Depth:     depth,
			Truncated: e.Truncated,
		})
		t.byPath[p] = id

		if e.Kind == Container {
			kids := make([]ID, 0, len(childrenOf[p]))
			for _, c := range childrenOf[p] {
				kids = append(kids, emit(c, id, depth+1))
			}
			t.nodes[id].Children = kids
		}
		t.nodes[id].end = ID(len(t.nodes))
		return id
	}

	for _, p := range childrenOf[""] {
		t.roots = append(t.roots, emit(p, None, 0))
	}
	return t, nil
}

func sortSiblings(paths []string, entries map[string]Entry) {
	sort.Slice(paths, func(i, j int) bool {
		a, b := entries[paths[i]], entries[paths[j]]
		if a.Kind != b.Kind {
			return a.Kind == Container
		}
		an, bn := baseName(paths[i]), baseName(paths[j])
		al, bl := strings.ToLower(an), strings.ToLower(bn)
		if al != bl {
			return al < bl
		}
		return an < bn
	})
}

// Len returns the number of nodes (excluding the implicit root).
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Valid reports whether id names a node of this tree.
func (t *Tree) Valid(id ID) bool {
	return t != nil && id >= 0 && int(id) < len(t.nodes)
}

// Node returns the node for id. It panics on an invalid id; callers check
// with Valid when the id comes from outside.
func (t *Tree) Node(id ID) Node {
	return t.nodes[id]
}

// Roots returns the children of the implicit root in display order.
// The returned slice must not be modified.
func (t *Tree) Roots() []ID {
	if t == nil {
		return nil
	}
	return t.roots
}

// Children returns a container's children in display order (nil for leaves).
// The returned slice must not be modified.
func (t *Tree) Children(id ID) []ID {
	return t.nodes[id].Children
}

// Parent returns the enclosing container, or None for top-level nodes.
func (t *Tree) Parent(id ID) ID {
	return t.nodes[id].Parent
}

// Lookup finds a node by path.
func (t *Tree) Lookup(p string) (ID, bool) {
	if t == nil {
		return None, false
	}
	id, ok := t.byPath[CleanPath(p)]
	return id, ok
}

// Rank returns the position of id in depth-first pre-order.
func (t *Tree) Rank(id ID) int { return int(id) }

// Before reports whether a precedes b in pre-order.
func (t *Tree) Before(a, b ID) bool { return a < b }

// IsAncestor reports whether a is a proper ancestor of d.
func (t *Tree) IsAncestor(a, d ID) bool {
	return a < d && d < t.nodes[a].end
}

// Descendants returns the half-open ID range [first, end) covering the
// proper descendants of id.
func (t *Tree) Descendants(id ID) (first, end ID) {
	return id + 1, t.nodes[id].end
}

// Ancestors returns the container chain above id, nearest first.
func (t *Tree) Ancestors(id ID) []ID {
	var out []ID
	for p := t.nodes[id].Parent; p != None; p = t.nodes[p].Parent {
		out = append(out, p)
	}
	return out
}

// Walk visits every node in pre-order. Returning false from fn skips the
// node's descendants.
func (t *Tree) Walk(fn func(id ID, n Node) bool) {
	if t == nil {
		return
	}
	for id := ID(0); int(id) < len(t.nodes); {
		if fn(id, t.nodes[id]) {
			id++
			continue
		}
		id = t.nodes[id].end
	}
}
