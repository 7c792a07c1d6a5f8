// Package testutil provides file-tree fixture generators for tests.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/ft/pkg/tree"
)

// GeneratorConfig controls listing generation.
type GeneratorConfig struct {
	Seed      int64    // Random seed for determinism (0 = use current time)
	DirPrefix string   // Prefix for generated directory names (default: "dir")
	Exts      []string // File extensions to pick from (default: .go, .md, .js)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42, // Deterministic
		DirPrefix: "dir",
		Exts:      []string{".go", ".md", ".js"},
	}
}

// Generator creates listings with various shapes.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.DirPrefix == "" {
		cfg.DirPrefix = "dir"
	}
	if len(cfg.Exts) == 0 {
		cfg.Exts = DefaultConfig().Exts
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Balanced creates a tree where every directory down to depth has breadth
// subdirectories and breadth files.
func (g *Generator) Balanced(depth, breadth int) *tree.Listing {
	l := tree.NewListing()
	var fill func(prefix string, d int)
	fill = func(prefix string, d int) {
		for b := 0; b < breadth; b++ {
			l.Add(join(prefix, fmt.Sprintf("file%d%s", b, g.pickExt())), tree.Leaf)
			if d < depth {
				dir := join(prefix, fmt.Sprintf("%s%d", g.cfg.DirPrefix, b))
				l.Add(dir, tree.Container)
				fill(dir, d+1)
			}
		}
	}
	fill("", 1)
	return l
}

// Random creates a listing with roughly size entries. Each new entry is
// placed under a random existing directory; about a third are directories.
func (g *Generator) Random(size int) *tree.Listing {
	l := tree.NewListing()
	dirs := []string{""}
	for i := 0; i < size; i++ {
		parent := dirs[g.rng.Intn(len(dirs))]
		if g.rng.Intn(3) == 0 {
			dir := join(parent, fmt.Sprintf("%s%d", g.cfg.DirPrefix, i))
			l.Add(dir, tree.Container)
			dirs = append(dirs, dir)
			continue
		}
		l.Add(join(parent, fmt.Sprintf("f%d%s", i, g.pickExt())), tree.Leaf)
	}
	return l
}

func (g *Generator) pickExt() string {
	return g.cfg.Exts[g.rng.Intn(len(g.cfg.Exts))]
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Listing builds a listing from literal paths. A trailing slash marks a
// container: Listing("src/", "src/index.js", "readme.md").
func Listing(paths ...string) *tree.Listing {
	l := tree.NewListing()
	for _, p := range paths {
		if strings.HasSuffix(p, "/") {
			l.Add(p, tree.Container)
			continue
		}
		l.Add(p, tree.Leaf)
	}
	return l
}

// MustTree builds a tree from literal paths or fails the test.
func MustTree(t testing.TB, paths ...string) *tree.Tree {
	t.Helper()
	tr, err := tree.Build(Listing(paths...))
	if err != nil {
		t.Fatalf("building tree fixture: %v", err)
	}
	return tr
}

// SampleRepo is the small repository used across package tests:
//
//	src/
//	  index.js
//	readme.md
func SampleRepo(t testing.TB) *tree.Tree {
	t.Helper()
	return MustTree(t, "src/", "src/index.js", "readme.md")
}

// QuickBalanced returns a balanced listing using the default generator.
func QuickBalanced(depth, breadth int) *tree.Listing {
	return NewDefault().Balanced(depth, breadth)
}

// QuickRandom returns a random listing using the default generator.
func QuickRandom(size int) *tree.Listing {
	return NewDefault().Random(size)
}
