// Package workspace merges several listing sources into one tree, each
// mounted under its source name as a top-level container.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/ft/internal/datasource"
	"github.com/vanderheijden86/ft/pkg/config"
	"github.com/vanderheijden86/ft/pkg/tree"
)

// maxParallelLoads bounds concurrent source loads (file descriptors, memory).
const maxParallelLoads = 8

// ErrNoSources is returned when there is nothing to load.
var ErrNoSources = errors.New("no sources in workspace")

// LoadResult contains the result of loading a single source
type LoadResult struct {
	// Name is the mount point in the merged listing
	Name string

	// Source is the resolved source (zero if resolution failed)
	Source datasource.DataSource

	// Listing is the source's own listing, unprefixed
	Listing *tree.Listing

	// Err is set if loading failed
	Err error
}

// AggregateLoader loads every configured source and merges them
type AggregateLoader struct {
	sources []config.Source
	opts    datasource.LoadOptions
	logger  *log.Logger
}

// NewAggregateLoader creates a loader for sources. Paths are resolved
// relative to the working directory.
func NewAggregateLoader(sources []config.Source, opts datasource.LoadOptions) *AggregateLoader {
	return &AggregateLoader{
		sources: sources,
		opts:    opts,
		// Silent unless the caller opts in.
		logger: log.New(io.Discard, "", 0),
	}
}

// SetLogger sets a custom logger for error reporting
func (l *AggregateLoader) SetLogger(logger *log.Logger) {
	l.logger = logger
}

// LoadAll loads all sources concurrently and mounts each under its name.
// A source that fails to load is mounted as a truncated, empty container
// and reported in its LoadResult; it does not fail the whole load.
func (l *AggregateLoader) LoadAll(ctx context.Context) (*tree.Listing, []LoadResult, error) {
	if len(l.sources) == 0 {
		return nil, nil, ErrNoSources
	}
	seen := make(map[string]string, len(l.sources))
	for _, s := range l.sources {
		name := MountName(s.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("source %q has no usable name", s.Name)
		}
		if prev, ok := seen[name]; ok {
			return nil, nil, fmt.Errorf("sources %q and %q share the mount point %q", prev, s.Name, name)
		}
		seen[name] = s.Name
	}

	results, err := l.loadParallel(ctx)
	if err != nil {
		return nil, results, err
	}

	merged := tree.NewListing()
	for _, r := range results {
		merged.Add(r.Name, tree.Container)
		if r.Err != nil {
			l.logger.Printf("Warning: failed to load source %q: %v", r.Name, r.Err)
			merged.MarkTruncated(r.Name)
			continue
		}
		Mount(merged, r.Listing, r.Name)
	}
	return merged, results, nil
}

func (l *AggregateLoader) loadParallel(ctx context.Context) ([]LoadResult, error) {
	results := make([]LoadResult, len(l.sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)

	for i, s := range l.sources {
		g.Go(func() error {
			results[i] = LoadResult{Name: MountName(s.Name)}
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			src, err := datasource.Resolve(s.Path)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Source = src
			if src.Type == datasource.SourceTypeStdin {
				results[i].Err = errors.New("stdin cannot be part of a workspace")
				return nil
			}
			results[i].Listing, results[i].Err = datasource.LoadFromSource(src, l.opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	l.logger.Printf("Finished loading %d sources", len(results))
	return results, nil
}

// MountName turns a source name into a single path segment.
func MountName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// Mount copies every entry of src into dst under prefix.
func Mount(dst, src *tree.Listing, prefix string) {
	for p, e := range src.Entries {
		full := prefix + "/" + p
		dst.Add(full, e.Kind)
		if e.Truncated {
			dst.MarkTruncated(full)
		}
	}
}

// LoadSummary aggregates load results
type LoadSummary struct {
	TotalSources  int
	LoadedSources int
	FailedSources int
	TotalEntries  int
	FailedNames   []string
}

// Summarize returns a summary of the load results
func Summarize(results []LoadResult) LoadSummary {
	summary := LoadSummary{TotalSources: len(results)}
	for _, r := range results {
		if r.Err != nil {
			summary.FailedSources++
			summary.FailedNames = append(summary.FailedNames, r.Name)
			continue
		}
		summary.LoadedSources++
		summary.TotalEntries += r.Listing.Len()
	}
	return summary
}

// String renders the summary as one line.
func (s LoadSummary) String() string {
	out := fmt.Sprintf("%d/%d sources loaded, %d entries", s.LoadedSources, s.TotalSources, s.TotalEntries)
	if s.FailedSources > 0 {
		out += fmt.Sprintf(" (failed: %s)", strings.Join(s.FailedNames, ", "))
	}
	return out
}
