// Package search finds the nodes of a tree that match a typed query and the
// containers that must be opened to reveal them.
//
// Matching rule: the query is trimmed, NFC-normalized and Unicode
// case-folded; a node matches when the folded query is a substring of the
// folded final path segment (its name). A query containing "/" is matched
// against the node's full path instead, so "src/ind" finds "src/index.js".
package search

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/vanderheijden86/ft/pkg/tree"
)

// Query is a parsed, normalized search string.
type Query struct {
	Raw      string
	needle   string
	fullPath bool
}

// ParseQuery normalizes s.
func ParseQuery(s string) Query {
	trimmed := strings.TrimSpace(s)
	return Query{
		Raw:      s,
		needle:   Fold(cases.Fold(), trimmed),
		fullPath: strings.Contains(trimmed, "/"),
	}
}

// Empty reports whether the query filters nothing.
func (q Query) Empty() bool { return q.needle == "" }

// Needle returns the normalized form that candidates are searched for.
func (q Query) Needle() string { return q.needle }

// Match reports whether n satisfies the query. c must not be shared between
// goroutines.
func (q Query) Match(c cases.Caser, n tree.Node) bool {
	if q.needle == "" {
		return true
	}
	candidate := n.Name
	if q.fullPath {
		candidate = n.Path
	}
	return strings.Contains(Fold(c, candidate), q.needle)
}

// Fold applies the normalization used on both sides of a match.
func Fold(c cases.Caser, s string) string {
	return c.String(norm.NFC.String(s))
}
