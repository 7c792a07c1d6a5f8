package datasource

import (
	"fmt"
	"os"

	"github.com/vanderheijden86/ft/pkg/loader"
	"github.com/vanderheijden86/ft/pkg/tree"
)

// LoadOptions configures LoadFromSource.
type LoadOptions struct {
	// Ignore glob patterns. For directory walks nil means loader.DefaultIgnore.
	Ignore []string
	// MaxEntries bounds directory walks (0 = unlimited).
	MaxEntries int
	// Warn receives non-fatal problems. If nil, warnings go to os.Stderr.
	Warn func(string)
}

func (o LoadOptions) warn() func(string) {
	if o.Warn != nil {
		return o.Warn
	}
	return func(msg string) { fmt.Fprintf(os.Stderr, "Warning: %s\n", msg) }
}

// Load resolves arg (see Resolve) and loads the listing it names.
func Load(arg string, opts LoadOptions) (*tree.Listing, DataSource, error) {
	src, err := Resolve(arg)
	if err != nil {
		return nil, DataSource{}, err
	}
	l, err := LoadFromSource(src, opts)
	if err != nil {
		return nil, src, err
	}
	return l, src, nil
}

// LoadBest discovers the sources for dir and loads the freshest valid one.
func LoadBest(dir string, opts LoadOptions) (*tree.Listing, DataSource, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		return nil, DataSource{}, err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, DataSource{}, err
	}
	l, err := LoadFromSource(best, opts)
	return l, best, err
}

// LoadFromSource loads a listing from a specific DataSource, dispatching to
// the appropriate reader based on source type.
func LoadFromSource(source DataSource, opts LoadOptions) (*tree.Listing, error) {
	switch source.Type {
	case SourceTypeDir:
		return loader.WalkDir(source.Path, loader.WalkOptions{
			Ignore:         opts.Ignore,
			MaxEntries:     opts.MaxEntries,
			WarningHandler: opts.warn(),
		})

	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		l, err := reader.LoadListing(opts.warn())
		if err != nil {
			return nil, err
		}
		return filterIgnored(l, opts.Ignore)

	case SourceTypeFile, SourceTypeStdin:
		return loadFile(source.Path, opts)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

func loadFile(path string, opts LoadOptions) (*tree.Listing, error) {
	return loader.LoadFile(path, loader.ParseOptions{
		WarningHandler: opts.warn(),
		Ignore:         opts.Ignore,
	})
}

func filterIgnored(l *tree.Listing, patterns []string) (*tree.Listing, error) {
	if len(patterns) == 0 {
		return l, nil
	}
	ig, err := loader.NewIgnore(patterns)
	if err != nil {
		return nil, err
	}
	for p := range l.Entries {
		if ig.Match(p) {
			delete(l.Entries, p)
		}
	}
	return l, nil
}
