package search

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/vanderheijden86/ft/pkg/metrics"
	"github.com/vanderheijden86/ft/pkg/tree"
)

// DefaultParallelThreshold is the tree size above which Matcher splits the
// scan across goroutines.
const DefaultParallelThreshold = 20000

// cancelCheckEvery is how many nodes are scanned between context checks.
const cancelCheckEvery = 1024

// Result is the outcome of one scan.
type Result struct {
	Query string
	// Matches lists matching nodes in pre-order.
	Matches []tree.ID
	// Keep holds every node that stays visible under the filter: the
	// matches plus all of their ancestors.
	Keep map[tree.ID]bool
	// ForceExpand lists the containers that must be expanded to reveal the
	// matches, in pre-order.
	ForceExpand []tree.ID
}

// Scanner computes a Result for a query over a tree. Implementations must
// only read the tree; they run off the engine's goroutine.
type Scanner interface {
	Scan(ctx context.Context, t *tree.Tree, q Query) (Result, error)
}

// ScannerFunc adapts a function to Scanner.
type ScannerFunc func(ctx context.Context, t *tree.Tree, q Query) (Result, error)

// Scan calls f.
func (f ScannerFunc) Scan(ctx context.Context, t *tree.Tree, q Query) (Result, error) {
	return f(ctx, t, q)
}

// Matcher is the default Scanner.
type Matcher struct {
	// ParallelThreshold is the node count above which the scan is split
	// into chunks. Zero means DefaultParallelThreshold; negative disables
	// parallel scanning.
	ParallelThreshold int
	// Workers bounds the number of chunks scanned at once (default 4).
	Workers int
}

// Scan implements Scanner.
func (m Matcher) Scan(ctx context.Context, t *tree.Tree, q Query) (Result, error) {
	defer metrics.Timer(metrics.SearchScan)()

	res := Result{Query: q.Raw}
	if q.Empty() || t.Len() == 0 {
		return res, ctx.Err()
	}

	threshold := m.ParallelThreshold
	if threshold == 0 {
		threshold = DefaultParallelThreshold
	}

	var (
		matches []tree.ID
		err     error
	)
	if threshold > 0 && t.Len() > threshold {
		matches, err = m.scanParallel(ctx, t, q)
	} else {
		matches, err = scanRange(ctx, t, q, 0, tree.ID(t.Len()))
	}
	if err != nil {
		return Result{Query: q.Raw}, err
	}

	res.Matches = matches
	res.Keep, res.ForceExpand = reveal(t, matches)
	return res, nil
}

func (m Matcher) scanParallel(ctx context.Context, t *tree.Tree, q Query) ([]tree.ID, error) {
	workers := m.Workers
	if workers <= 0 {
		workers = 4
	}
	n := t.Len()
	chunk := (n + workers - 1) / workers
	parts := make([][]tree.ID, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			found, err := scanRange(gctx, t, q, tree.ID(lo), tree.ID(hi))
			parts[w] = found
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []tree.ID
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

func scanRange(ctx context.Context, t *tree.Tree, q Query, lo, hi tree.ID) ([]tree.ID, error) {
	c := cases.Fold()
	var out []tree.ID
	for id := lo; id < hi; id++ {
		if int(id-lo)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if q.Match(c, t.Node(id)) {
			out = append(out, id)
		}
	}
	return out, nil
}

// reveal computes the keep set and the containers to force-expand for a set
// of matches.
func reveal(t *tree.Tree, matches []tree.ID) (map[tree.ID]bool, []tree.ID) {
	keep := make(map[tree.ID]bool, len(matches)*2)
	ancestors := make(map[tree.ID]bool)
	for _, id := range matches {
		keep[id] = true
		for p := t.Parent(id); p != tree.None; p = t.Parent(p) {
			if ancestors[p] {
				break
			}
			ancestors[p] = true
			keep[p] = true
		}
	}

	expand := make([]tree.ID, 0, len(ancestors))
	for id := range ancestors {
		expand = append(expand, id)
	}
	sort.Slice(expand, func(i, j int) bool { return expand[i] < expand[j] })
	return keep, expand
}
