package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/ft/pkg/tree"
)

// ListingDiff represents differences between two listings of the same source
type ListingDiff struct {
	// Added contains paths present in the new listing only
	Added []string
	// Removed contains paths present in the old listing only
	Removed []string
	// KindChanged contains paths that switched between file and directory
	KindChanged []string
	// CountOld is the number of entries in the old listing
	CountOld int
	// CountNew is the number of entries in the new listing
	CountNew int
}

// HasChanges returns true if the listings differ
func (d ListingDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.KindChanged) > 0
}

// Summary returns a one-line summary such as "+3 -1 ~0 (120 entries)".
func (d ListingDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("no changes (%d entries)", d.CountNew)
	}
	return fmt.Sprintf("+%d -%d ~%d (%d entries)", len(d.Added), len(d.Removed), len(d.KindChanged), d.CountNew)
}

// Details lists up to limit changed paths per category, one per line.
func (d ListingDiff) Details(limit int) string {
	var sb strings.Builder
	section := func(sign string, paths []string) {
		for i, p := range paths {
			if limit > 0 && i == limit {
				fmt.Fprintf(&sb, "  %s ... %d more\n", sign, len(paths)-limit)
				return
			}
			fmt.Fprintf(&sb, "  %s %s\n", sign, p)
		}
	}
	section("+", d.Added)
	section("-", d.Removed)
	section("~", d.KindChanged)
	return sb.String()
}

// DiffListings compares two listings by path
func DiffListings(old, cur *tree.Listing) ListingDiff {
	d := ListingDiff{CountOld: old.Len(), CountNew: cur.Len()}
	if old != nil {
		for p, e := range old.Entries {
			var ne tree.Entry
			ok := false
			if cur != nil {
				ne, ok = cur.Entries[p]
			}
			switch {
			case !ok:
				d.Removed = append(d.Removed, p)
			case ne.Kind != e.Kind:
				d.KindChanged = append(d.KindChanged, p)
			}
		}
	}
	if cur != nil {
		for p := range cur.Entries {
			if old == nil {
				d.Added = append(d.Added, p)
				continue
			}
			if _, ok := old.Entries[p]; !ok {
				d.Added = append(d.Added, p)
			}
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.KindChanged)
	return d
}
