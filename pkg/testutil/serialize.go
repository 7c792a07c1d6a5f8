package testutil

import (
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ft/pkg/tree"
)

type wireEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

func wireEntries(l *tree.Listing) []wireEntry {
	paths := make([]string, 0, len(l.Entries))
	for p := range l.Entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]wireEntry, len(paths))
	for i, p := range paths {
		typ := "blob"
		if l.Entries[p].Kind == tree.Container {
			typ = "tree"
		}
		out[i] = wireEntry{Path: p, Type: typ}
	}
	return out
}

// ToJSONL renders a listing as one {"path","type"} object per line, sorted
// by path.
func ToJSONL(l *tree.Listing) string {
	var sb strings.Builder
	for _, e := range wireEntries(l) {
		b, _ := json.Marshal(e)
		sb.Write(b)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ToTreesResponse renders a listing as a GitHub git-trees response body.
func ToTreesResponse(l *tree.Listing, truncated bool) string {
	b, _ := json.Marshal(struct {
		SHA       string      `json:"sha"`
		Tree      []wireEntry `json:"tree"`
		Truncated bool        `json:"truncated"`
	}{
		SHA:       "9fb037999f264ba9a7fc6274d15fa3ae2ab98312",
		Tree:      wireEntries(l),
		Truncated: truncated,
	})
	return string(b)
}
