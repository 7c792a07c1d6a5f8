package search

import (
	"context"

	"github.com/vanderheijden86/ft/pkg/tree"
)

// Pending is a search that has been started but not yet applied. Run may be
// called from any goroutine; it only reads the tree.
type Pending struct {
	Gen   uint64
	Query string

	ctx     context.Context
	cancel  context.CancelFunc
	tree    *tree.Tree
	scanner Scanner
}

// Outcome is what a finished Pending reports back to its owner.
type Outcome struct {
	Gen    uint64
	Query  string
	Result Result
	Err    error
}

// Run performs the scan and returns its outcome. It blocks until the scan
// completes or the search is superseded.
func (p *Pending) Run() Outcome {
	defer p.cancel()
	res, err := p.scanner.Scan(p.ctx, p.tree, ParseQuery(p.Query))
	return Outcome{Gen: p.Gen, Query: p.Query, Result: res, Err: err}
}

// Cancel abandons the scan. Its outcome will carry a context error.
func (p *Pending) Cancel() { p.cancel() }

// Sequencer hands out search generations and remembers which one was
// started last. Only the outcome of the most recently started search is
// current; starting a new search cancels the previous one.
//
// A Sequencer is owned by a single goroutine.
type Sequencer struct {
	latest uint64
	cancel context.CancelFunc
}

// Begin starts a new generation for query and cancels the previous one.
func (s *Sequencer) Begin(ctx context.Context, t *tree.Tree, sc Scanner, query string) *Pending {
	if s.cancel != nil {
		s.cancel()
	}
	s.latest++
	cctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return &Pending{
		Gen:     s.latest,
		Query:   query,
		ctx:     cctx,
		cancel:  cancel,
		tree:    t,
		scanner: sc,
	}
}

// IsCurrent reports whether gen is the most recently started generation.
func (s *Sequencer) IsCurrent(gen uint64) bool {
	return gen != 0 && gen == s.latest
}

// Latest returns the most recently started generation (0 if none).
func (s *Sequencer) Latest() uint64 { return s.latest }

// Invalidate makes every started generation stale, e.g. after the tree was
// replaced.
func (s *Sequencer) Invalidate() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.latest++
}
