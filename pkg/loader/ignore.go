package loader

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIgnore is applied by WalkDir when no patterns are configured. It
// covers VCS metadata and the .ft snapshot folder.
var DefaultIgnore = []string{".git", ".hg", ".svn", ".ft"}

// Ignore matches paths against a set of glob patterns. A pattern without a
// "/" is matched against every path segment; one with a "/" is matched
// against the path and each of its ancestors. "*" does not cross "/".
type Ignore struct {
	patterns []string
	segment  []glob.Glob
	full     []glob.Glob
}

// NewIgnore compiles patterns. Blank patterns are skipped.
func NewIgnore(patterns []string) (*Ignore, error) {
	ig := &Ignore{}
	for _, raw := range patterns {
		p := strings.Trim(strings.TrimSpace(raw), "/")
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", raw, err)
		}
		ig.patterns = append(ig.patterns, p)
		if strings.Contains(p, "/") {
			ig.full = append(ig.full, g)
		} else {
			ig.segment = append(ig.segment, g)
		}
	}
	return ig, nil
}

// Patterns returns the compiled patterns.
func (ig *Ignore) Patterns() []string {
	if ig == nil {
		return nil
	}
	return ig.patterns
}

// Match reports whether p (a cleaned listing path) or one of its ancestors
// is ignored.
func (ig *Ignore) Match(p string) bool {
	if ig == nil || (len(ig.segment) == 0 && len(ig.full) == 0) {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		for _, g := range ig.segment {
			if g.Match(seg) {
				return true
			}
		}
	}
	for prefix := p; prefix != ""; {
		for _, g := range ig.full {
			if g.Match(prefix) {
				return true
			}
		}
		i := strings.LastIndexByte(prefix, '/')
		if i < 0 {
			break
		}
		prefix = prefix[:i]
	}
	return false
}
