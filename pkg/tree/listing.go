package tree

import (
	"path"
	"strings"
)

// Entry is one record produced by the ingestion step: a path and whether it
// names a container (directory) or a leaf (file).
type Entry struct {
	Path string
	Kind Kind
	// Truncated marks a container whose children were not included in the
	// listing (e.g. a truncated GitHub trees response). It is rendered like
	// an empty container.
	Truncated bool
}

// Listing is the parse result handed to Build: a mapping from path to entry.
// The root container is implicit and has the empty path.
type Listing struct {
	Entries map[string]Entry
}

// NewListing returns an empty listing.
func NewListing() *Listing {
	return &Listing{Entries: make(map[string]Entry)}
}

// Add records an entry and any parent containers implied by its path.
// Adding a path twice keeps the container kind if either record says so.
func (l *Listing) Add(p string, kind Kind) {
	p = CleanPath(p)
	if p == "" {
		return
	}
	if l.Entries == nil {
		l.Entries = make(map[string]Entry)
	}
	if prev, ok := l.Entries[p]; ok && prev.Kind == Container {
		kind = Container
	}
	e := l.Entries[p]
	e.Path = p
	e.Kind = kind
	l.Entries[p] = e

	for dir := parentPath(p); dir != ""; dir = parentPath(dir) {
		if prev, ok := l.Entries[dir]; ok && prev.Kind == Container {
			break
		}
		l.Entries[dir] = Entry{Path: dir, Kind: Container}
	}
}

// MarkTruncated flags a container whose children are missing from the listing.
func (l *Listing) MarkTruncated(p string) {
	p = CleanPath(p)
	if e, ok := l.Entries[p]; ok && e.Kind == Container {
		e.Truncated = true
		l.Entries[p] = e
	}
}

// Len returns the number of entries.
func (l *Listing) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Entries)
}

// CleanPath normalizes a listing path to the slash-separated, relative form
// used as node identity: no leading "./" or "/", no trailing slash.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

func parentPath(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

func baseName(p string) string {
	return p[strings.LastIndexByte(p, '/')+1:]
}
