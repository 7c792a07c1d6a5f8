// Package loader turns file listings into a tree.Listing.
//
// Three input shapes are understood and told apart by content:
//   - a GitHub git-trees API response ({"sha":..., "tree":[...], "truncated":...})
//   - JSONL, one {"path":..., "type":...} object per line
//   - plain text, one path per line, with a trailing "/" marking a directory
//     (the output of `find`, `git ls-files` and friends)
//
// Local directories are read with WalkDir.
package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ft/pkg/metrics"
	"github.com/vanderheijden86/ft/pkg/tree"
)

// DefaultMaxBufferSize is the default buffer size for line reading (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ErrEmptyListing is returned when an input holds no usable entries.
var ErrEmptyListing = errors.New("listing has no entries")

// ParseOptions configures the behavior of Parse.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// BufferSize sets the maximum line size (in bytes) to read at once.
	// Lines longer than this are skipped with a warning.
	// If 0, uses DefaultMaxBufferSize (10MB).
	BufferSize int

	// Ignore drops entries (and everything below them) whose path or name
	// matches one of these glob patterns.
	Ignore []string

	// AllowEmpty accepts inputs without any entries.
	AllowEmpty bool
}

func (o ParseOptions) warn() func(string) {
	if o.WarningHandler != nil {
		return o.WarningHandler
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

// Entry is the wire form shared by git-trees responses and JSONL lines.
type Entry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`
	SHA  string `json:"sha,omitempty"`
	Size int64  `json:"size,omitempty"`
	// Truncated marks a directory whose contents are incomplete.
	Truncated bool `json:"truncated,omitempty"`
}

// Kind maps the entry type onto a node kind.
func (e Entry) Kind() (tree.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(e.Type)) {
	case "tree", "dir", "directory":
		return tree.Container, nil
	case "blob", "file", "commit", "symlink", "":
		// "commit" is a submodule pointer; it has no browsable children.
		return tree.Leaf, nil
	default:
		return tree.Leaf, fmt.Errorf("unknown entry type %q", e.Type)
	}
}

// TreesResponse is the body of GET /repos/{owner}/{repo}/git/trees/{sha}?recursive=1.
type TreesResponse struct {
	SHA       string  `json:"sha"`
	URL       string  `json:"url,omitempty"`
	Tree      []Entry `json:"tree"`
	Truncated bool    `json:"truncated"`
}

// LoadFile reads a listing file. The path "-" reads standard input.
func LoadFile(path string, opts ParseOptions) (*tree.Listing, error) {
	if path == "-" {
		return Parse(os.Stdin, opts)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no listing found at %s", path)
		}
		return nil, fmt.Errorf("failed to open listing: %w", err)
	}
	defer f.Close()
	return Parse(f, opts)
}

// Parse reads a listing in any of the supported shapes.
func Parse(r io.Reader, opts ParseOptions) (*tree.Listing, error) {
	defer metrics.Timer(metrics.Ingest)()

	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	buf := make([]byte, 512)
	n, _ := io.ReadFull(r, buf)
	buf = stripBOM(buf[:n])
	r = io.MultiReader(bytes.NewReader(buf), r)
	head := bytes.TrimSpace(buf)

	ig, err := NewIgnore(opts.Ignore)
	if err != nil {
		return nil, err
	}

	var l *tree.Listing
	if looksLikeTreesResponse(head) {
		l, err = parseTreesResponse(r, ig, opts.warn())
	} else {
		l, err = parseLines(bufio.NewReaderSize(r, maxCapacity), maxCapacity, ig, opts.warn())
	}
	if err != nil {
		return nil, err
	}
	if l.Len() == 0 && !opts.AllowEmpty {
		return nil, ErrEmptyListing
	}
	return l, nil
}

// ParseTreesResponse decodes a git-trees response. Directories that have no
// entries in a truncated response are flagged as truncated.
func ParseTreesResponse(r io.Reader, opts ParseOptions) (*tree.Listing, error) {
	ig, err := NewIgnore(opts.Ignore)
	if err != nil {
		return nil, err
	}
	return parseTreesResponse(r, ig, opts.warn())
}

func parseTreesResponse(r io.Reader, ig *Ignore, warn func(string)) (*tree.Listing, error) {
	var resp TreesResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding trees response: %w", err)
	}

	l := tree.NewListing()
	for i, e := range resp.Tree {
		addEntry(l, e, ig, func(msg string) {
			warn(fmt.Sprintf("skipping tree entry %d: %s", i, msg))
		})
	}

	if resp.Truncated {
		warn(fmt.Sprintf("trees response for %s is truncated; some directories are incomplete", shortSHA(resp.SHA)))
		markChildless(l)
	}
	return l, nil
}

func parseLines(reader *bufio.Reader, maxCapacity int, ig *Ignore, warn func(string)) (*tree.Listing, error) {
	l := tree.NewListing()
	lineNum := 0
	for {
		lineNum++
		// ReadLine returns a single line, not including the end-of-line bytes.
		// If the line was too long for the buffer then isPrefix is set and the
		// beginning of the line is returned.
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading listing at line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		lineWarn := func(msg string) { warn(fmt.Sprintf("skipping line %d: %s", lineNum, msg)) }
		if line[0] != '{' {
			p := string(line)
			kind := tree.Leaf
			if strings.HasSuffix(p, "/") {
				kind = tree.Container
			}
			addEntry(l, Entry{Path: p, Type: kindType(kind)}, ig, lineWarn)
			continue
		}

		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			lineWarn(fmt.Sprintf("malformed JSON: %v", err))
			continue
		}
		addEntry(l, e, ig, lineWarn)
	}
	return l, nil
}

func addEntry(l *tree.Listing, e Entry, ig *Ignore, warn func(string)) {
	p := tree.CleanPath(e.Path)
	if p == "" {
		warn("empty path")
		return
	}
	kind, err := e.Kind()
	if err != nil {
		warn(err.Error())
		return
	}
	if ig.Match(p) {
		return
	}
	l.Add(p, kind)
	if e.Truncated {
		l.MarkTruncated(p)
	}
}

// markChildless flags every container that has no entries below it.
func markChildless(l *tree.Listing) {
	hasChildren := make(map[string]bool, len(l.Entries))
	for p := range l.Entries {
		if i := strings.LastIndexByte(p, '/'); i >= 0 {
			hasChildren[p[:i]] = true
		}
	}
	for p, e := range l.Entries {
		if e.Kind == tree.Container && !hasChildren[p] {
			l.MarkTruncated(p)
		}
	}
}

func looksLikeTreesResponse(head []byte) bool {
	if len(head) == 0 || head[0] != '{' {
		return false
	}
	// A JSONL entry line never has a "tree" key.
	return bytes.Contains(head, []byte(`"tree":`)) || bytes.Contains(head, []byte(`"tree" :`))
}

func kindType(k tree.Kind) string {
	if k == tree.Container {
		return "tree"
	}
	return "blob"
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	if sha == "" {
		return "(unknown)"
	}
	return sha
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
