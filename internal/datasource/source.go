// Package datasource finds, validates and selects the listing a browse
// session starts from: a live directory, a listing file (git-trees JSON,
// JSONL, plain paths) or a SQLite listing database.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SourceEnvVar names the environment variable that overrides the default
// source when no argument is given.
const SourceEnvVar = "FT_SOURCE"

// SnapshotDir is the per-directory folder searched for saved listings.
const SnapshotDir = ".ft"

// SourceType identifies the type of listing source
type SourceType string

const (
	// SourceTypeDir is a live directory walk
	SourceTypeDir SourceType = "dir"
	// SourceTypeFile is a listing file (git-trees JSON, JSONL or plain paths)
	SourceTypeFile SourceType = "file"
	// SourceTypeSQLite is a SQLite database with an entries table
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeStdin is a listing read from standard input
	SourceTypeStdin SourceType = "stdin"
)

// Priority values for source types (higher = preferred on equal freshness)
const (
	PriorityDir    = 100
	PrioritySQLite = 80
	PriorityFile   = 50
)

// ErrNoSources is returned when discovery finds nothing usable.
var ErrNoSources = errors.New("no valid listing sources")

// DataSource represents a potential source of listing data
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source ("-" for stdin)
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// EntryCount is the number of entries in the source (set during validation)
	EntryCount int `json:"entry_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, entries=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.EntryCount, status)
}

// Watchable reports whether the source lives on disk and can be watched.
func (s DataSource) Watchable() bool {
	return s.Type != SourceTypeStdin
}

// Resolve turns a command-line argument into a source. An empty argument
// falls back to $FT_SOURCE and then to the working directory.
func Resolve(arg string) (DataSource, error) {
	if arg == "" {
		arg = os.Getenv(SourceEnvVar)
	}
	if arg == "" {
		wd, err := os.Getwd()
		if err != nil {
			return DataSource{}, fmt.Errorf("failed to get current directory: %w", err)
		}
		arg = wd
	}
	if arg == "-" {
		return DataSource{Type: SourceTypeStdin, Path: "-", ModTime: time.Now()}, nil
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		return DataSource{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return DataSource{}, fmt.Errorf("cannot open source: %w", err)
	}
	return sourceFor(abs, info), nil
}

func sourceFor(path string, info os.FileInfo) DataSource {
	s := DataSource{Path: path, ModTime: info.ModTime(), Size: info.Size()}
	switch {
	case info.IsDir():
		s.Type, s.Priority = SourceTypeDir, PriorityDir
	case isSQLiteName(path):
		s.Type, s.Priority = SourceTypeSQLite, PrioritySQLite
	default:
		s.Type, s.Priority = SourceTypeFile, PriorityFile
	}
	return s
}

func isSQLiteName(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func isListingName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonl", ".txt", ".lst":
		return true
	}
	return false
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the directory to browse (uses cwd if empty)
	Dir string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// DiscoverSources lists Dir itself plus any saved listings in Dir/.ft,
// freshest first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot open directory: %w", err)
	}

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", dir))
	}

	sources := []DataSource{sourceFor(dir, info)}

	snapshots, err := discoverSnapshots(filepath.Join(dir, SnapshotDir), opts)
	if err != nil && opts.Verbose {
		opts.Logger(fmt.Sprintf("Snapshot discovery warning: %v", err))
	}
	sources = append(sources, snapshots...)

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			var valid []DataSource
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}
	return sources, nil
}

func discoverSnapshots(snapDir string, opts DiscoveryOptions) ([]DataSource, error) {
	entries, err := os.ReadDir(snapDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !isSQLiteName(name) && !isListingName(name) {
			continue
		}
		// Skip backups and partial writes
		if strings.Contains(name, ".backup") || strings.HasSuffix(name, ".tmp") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		s := sourceFor(filepath.Join(snapDir, name), info)
		sources = append(sources, s)
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s snapshot: %s (mod=%s)", s.Type, s.Path, s.ModTime.Format(time.RFC3339)))
		}
	}
	return sources, nil
}

func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
}

// ValidateSource checks that a source can be read and records its entry
// count.
func ValidateSource(s *DataSource) error {
	fail := func(err error) error {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}

	switch s.Type {
	case SourceTypeDir:
		f, err := os.Open(s.Path)
		if err != nil {
			return fail(err)
		}
		names, err := f.Readdirnames(-1)
		f.Close()
		if err != nil {
			return fail(err)
		}
		s.EntryCount = len(names)
	case SourceTypeSQLite:
		r, err := NewSQLiteReader(*s)
		if err != nil {
			return fail(err)
		}
		defer r.Close()
		n, err := r.CountEntries()
		if err != nil {
			return fail(err)
		}
		if n == 0 {
			return fail(errors.New("entries table is empty"))
		}
		s.EntryCount = n
	case SourceTypeFile:
		l, err := loadFile(s.Path, LoadOptions{Warn: func(string) {}})
		if err != nil {
			return fail(err)
		}
		s.EntryCount = l.Len()
	case SourceTypeStdin:
		// Reading would consume it.
	default:
		return fail(fmt.Errorf("unknown source type: %s", s.Type))
	}
	s.Valid = true
	s.ValidationError = ""
	return nil
}

// SelectBestSource returns the freshest valid source.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	candidates := make([]DataSource, 0, len(sources))
	for _, s := range sources {
		if s.Valid {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return DataSource{}, ErrNoSources
	}
	sortSources(candidates)
	return candidates[0], nil
}
