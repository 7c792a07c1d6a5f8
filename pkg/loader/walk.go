package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/vanderheijden86/ft/pkg/metrics"
	"github.com/vanderheijden86/ft/pkg/tree"
)

// WalkOptions configures WalkDir.
type WalkOptions struct {
	// Ignore patterns; nil means DefaultIgnore. Pass an empty, non-nil
	// slice to include everything.
	Ignore []string
	// MaxEntries stops the walk once this many entries were collected and
	// flags the directories whose listing was cut short as truncated.
	// 0 means no limit.
	MaxEntries int
	// WarningHandler receives unreadable-directory warnings. If nil,
	// warnings are printed to os.Stderr.
	WarningHandler func(string)
}

// ErrNotDirectory is returned by WalkDir for a root that is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// WalkDir lists root recursively. Paths in the listing are relative to
// root. Symlinks are listed as leaves and not followed.
func WalkDir(root string, opts WalkOptions) (*tree.Listing, error) {
	defer metrics.Timer(metrics.Ingest)()

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	patterns := opts.Ignore
	if patterns == nil {
		patterns = DefaultIgnore
	}
	ig, err := NewIgnore(patterns)
	if err != nil {
		return nil, err
	}
	warn := ParseOptions{WarningHandler: opts.WarningHandler}.warn()

	l := tree.NewListing()
	full := false
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if p == root {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			// Unreadable directory: keep it, flagged, and move on.
			warn(fmt.Sprintf("cannot read %s: %v", rel, err))
			if d != nil && d.IsDir() {
				l.Add(rel, tree.Container)
				l.MarkTruncated(rel)
				return fs.SkipDir
			}
			return nil
		}
		if ig.Match(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if full {
			// The parent holds an entry that did not make it in.
			if parent := path.Dir(rel); parent != "." {
				l.MarkTruncated(parent)
			}
			return fs.SkipDir
		}

		if d.IsDir() {
			l.Add(rel, tree.Container)
		} else {
			l.Add(rel, tree.Leaf)
		}
		if opts.MaxEntries > 0 && l.Len() >= opts.MaxEntries {
			full = true
			warn(fmt.Sprintf("listing of %s stopped at %d entries", root, opts.MaxEntries))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return l, nil
}
