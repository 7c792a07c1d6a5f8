// Package visible computes which nodes of a tree are on screen.
//
// An Engine owns the expanded set, the active search filter and the focus
// pointer. Every mutation recomputes the flattened, depth-annotated node
// sequence from scratch; the result is exposed as an immutable Snapshot.
//
// An Engine is not safe for concurrent use. It is meant to be owned by one
// goroutine (the UI loop); only search.Pending.Run executes elsewhere.
package visible

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/vanderheijden86/ft/pkg/debug"
	"github.com/vanderheijden86/ft/pkg/metrics"
	"github.com/vanderheijden86/ft/pkg/search"
	"github.com/vanderheijden86/ft/pkg/tree"
)

var (
	// ErrUnknownNode is returned for ids that are not part of the tree.
	ErrUnknownNode = errors.New("unknown node")
	// ErrNotContainer is returned when expanding or collapsing a leaf.
	ErrNotContainer = errors.New("node is not a container")
	// ErrNotVisible is returned when focusing a node outside the visible sequence.
	ErrNotVisible = errors.New("node is not visible")
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for recoverable failures.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithScanner replaces the default search.Matcher.
func WithScanner(s search.Scanner) Option {
	return func(e *Engine) { e.scanner = s }
}

// WithExpanded pre-seeds the expanded set by path. Unknown paths and leaves
// are ignored.
func WithExpanded(paths ...string) Option {
	return func(e *Engine) { e.seedPaths = append(e.seedPaths, paths...) }
}

// WithExpandDepth pre-expands every container shallower than depth.
func WithExpandDepth(depth int) Option {
	return func(e *Engine) { e.seedDepth = depth }
}

// Engine is the visibility engine.
type Engine struct {
	tree     *tree.Tree
	expanded map[tree.ID]bool
	filter   *search.Result // nil when no search is applied
	focused  tree.ID

	seq     search.Sequencer
	applied uint64
	scanner search.Scanner
	logger  *log.Logger

	snap  Snapshot
	index map[tree.ID]int

	seedPaths []string
	seedDepth int
}

// New plants t and computes the initial snapshot.
func New(t *tree.Tree, opts ...Option) *Engine {
	e := &Engine{
		tree:     t,
		expanded: make(map[tree.ID]bool),
		focused:  tree.None,
		scanner:  search.Matcher{},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.seed()
	e.recompute()
	return e
}

func (e *Engine) seed() {
	if e.seedDepth > 0 {
		e.tree.Walk(func(id tree.ID, n tree.Node) bool {
			if n.Depth >= e.seedDepth {
				return false
			}
			if n.IsContainer() {
				e.expanded[id] = true
			}
			return true
		})
	}
	for _, p := range e.seedPaths {
		if id, ok := e.tree.Lookup(p); ok && e.tree.Node(id).IsContainer() {
			e.expanded[id] = true
		}
	}
}

// Tree returns the planted tree.
func (e *Engine) Tree() *tree.Tree { return e.tree }

// Snapshot returns the current visible state. Snapshots are never mutated
// after they are handed out.
func (e *Engine) Snapshot() Snapshot { return e.snap }

// IsExpanded reports whether id is in the expanded set.
func (e *Engine) IsExpanded(id tree.ID) bool { return e.expanded[id] }

// Focused returns the focused node or tree.None.
func (e *Engine) Focused() tree.ID { return e.focused }

// Query returns the query of the applied search ("" when unfiltered).
func (e *Engine) Query() string {
	if e.filter == nil {
		return ""
	}
	return e.filter.Query
}

// Searching reports whether a started search has not been applied yet.
func (e *Engine) Searching() bool {
	return e.seq.Latest() != 0 && e.applied != e.seq.Latest()
}

func (e *Engine) container(id tree.ID) error {
	if !e.tree.Valid(id) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	switch e.tree.Node(id).Kind {
	case tree.Container:
		return nil
	case tree.Leaf:
		return fmt.Errorf("%w: %s", ErrNotContainer, e.tree.Node(id).Path)
	default:
		panic(fmt.Sprintf("visible: unhandled node kind %v", e.tree.Node(id).Kind))
	}
}

// SetExpand sets the membership of a container in the expanded set.
func (e *Engine) SetExpand(id tree.ID, expand bool) error {
	if err := e.container(id); err != nil {
		return err
	}
	if expand {
		e.expanded[id] = true
	} else {
		delete(e.expanded, id)
	}
	e.recompute()
	return nil
}

// ToggleExpand flips the membership of a container in the expanded set.
func (e *Engine) ToggleExpand(id tree.ID) error {
	return e.SetExpand(id, !e.expanded[id])
}

// ExpandPathTo expands every ancestor of id so that it can become visible.
func (e *Engine) ExpandPathTo(id tree.ID) error {
	if !e.tree.Valid(id) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	for _, a := range e.tree.Ancestors(id) {
		e.expanded[a] = true
	}
	e.recompute()
	return nil
}

// ExpandAll expands every container.
func (e *Engine) ExpandAll() {
	e.tree.Walk(func(id tree.ID, n tree.Node) bool {
		if n.IsContainer() {
			e.expanded[id] = true
		}
		return true
	})
	e.recompute()
}

// CollapseAll empties the expanded set.
func (e *Engine) CollapseAll() {
	clear(e.expanded)
	e.recompute()
}

// FocusNode moves focus to id, or clears it for tree.None. Focusing a node
// that is not in the current snapshot is rejected and leaves state unchanged.
func (e *Engine) FocusNode(id tree.ID) error {
	if id == tree.None {
		e.focused = tree.None
		e.snap.Focused = tree.None
		return nil
	}
	if !e.tree.Valid(id) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	if _, ok := e.index[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotVisible, e.tree.Node(id).Path)
	}
	e.focused = id
	e.snap.Focused = id
	return nil
}

// FocusPath focuses the node at path p.
func (e *Engine) FocusPath(p string) error {
	id, ok := e.tree.Lookup(p)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, p)
	}
	return e.FocusNode(id)
}

// Search starts a search for query and returns it without running it. The
// caller runs the returned Pending (typically on another goroutine) and
// hands its outcome to ApplySearch. Starting a search supersedes every
// earlier one.
func (e *Engine) Search(ctx context.Context, query string) *search.Pending {
	p := e.seq.Begin(ctx, e.tree, e.scanner, query)
	debug.Log("search %q started (gen %d)", query, p.Gen)
	return p
}

// ApplySearch applies a finished search if it is the most recently started
// one and reports whether it did. A failed search is applied as if it
// matched nothing.
func (e *Engine) ApplySearch(o search.Outcome) bool {
	if !e.seq.IsCurrent(o.Gen) {
		debug.Log("search %q discarded (gen %d, latest %d)", o.Query, o.Gen, e.seq.Latest())
		return false
	}
	e.applied = o.Gen

	switch {
	case search.ParseQuery(o.Query).Empty():
		e.filter = nil
	case o.Err != nil:
		e.logger.Printf("warning: search %q failed, showing no matches: %v", o.Query, o.Err)
		e.filter = &search.Result{Query: o.Query, Keep: map[tree.ID]bool{}}
	default:
		res := o.Result
		res.Query = o.Query
		for _, id := range res.ForceExpand {
			e.expanded[id] = true
		}
		e.filter = &res
	}
	e.recompute()
	return true
}

// SearchSync runs a search to completion on the calling goroutine.
func (e *Engine) SearchSync(ctx context.Context, query string) bool {
	return e.ApplySearch(e.Search(ctx, query).Run())
}

// Replant swaps in a rebuilt tree. Expanded containers and focus carry over
// by path. Any pending search becomes stale; if a query was applied, the
// returned Pending re-runs it against the new tree (nil otherwise).
func (e *Engine) Replant(ctx context.Context, t *tree.Tree) *search.Pending {
	defer debug.LogEnterExit("visible.Replant")()

	old := e.tree
	expanded := make(map[tree.ID]bool, len(e.expanded))
	for id := range e.expanded {
		if nid, ok := t.Lookup(old.Node(id).Path); ok && t.Node(nid).IsContainer() {
			expanded[nid] = true
		}
	}
	focusPath := ""
	if e.focused != tree.None {
		focusPath = old.Node(e.focused).Path
	}
	query := e.Query()

	e.tree = t
	e.expanded = expanded
	e.filter = nil
	e.focused = tree.None
	e.seq.Invalidate()
	e.applied = e.seq.Latest()
	if focusPath != "" {
		if id, ok := t.Lookup(focusPath); ok {
			e.focused = id
		}
	}
	e.recompute()

	if query == "" {
		return nil
	}
	return e.Search(ctx, query)
}

func (e *Engine) recompute() {
	defer metrics.Timer(metrics.Recompute)()

	nodes := make([]tree.ID, 0, len(e.snap.Nodes))
	depths := make(map[tree.ID]int, len(e.snap.Nodes))
	index := make(map[tree.ID]int, len(e.snap.Nodes))

	var visit func(ids []tree.ID, depth int)
	visit = func(ids []tree.ID, depth int) {
		for _, id := range ids {
			if e.filter != nil && !e.filter.Keep[id] {
				continue
			}
			index[id] = len(nodes)
			nodes = append(nodes, id)
			depths[id] = depth
			if e.expanded[id] {
				visit(e.tree.Children(id), depth+1)
			}
		}
	}
	visit(e.tree.Roots(), 0)

	if _, ok := index[e.focused]; !ok {
		e.focused = tree.None
	}

	expanded := make(map[tree.ID]bool, len(e.expanded))
	for id := range e.expanded {
		expanded[id] = true
	}

	e.index = index
	e.snap = Snapshot{
		Nodes:    nodes,
		Depths:   depths,
		Focused:  e.focused,
		Expanded: expanded,
		Query:    e.Query(),
		index:    index,
	}
}
