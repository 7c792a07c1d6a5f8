//go:build ignore

// generate_testdata.go writes listing datasets for benchmarking and manual
// testing of large trees.
// Usage: go run scripts/generate_testdata.go [outdir]
//
// Creates (default outdir testdata/bench):
//
//	small.jsonl   (~100 entries, random)
//	medium.jsonl  (~10k entries, random)
//	large.jsonl   (~100k entries, random)
//	wide.jsonl    (balanced, depth 3, 40 children per container)
//	deep.jsonl    (balanced, depth 12, 2 children per container)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/ft/pkg/testutil"
	"github.com/vanderheijden86/ft/pkg/tree"
)

type datasetSpec struct {
	name string
	gen  func(g *testutil.Generator) *tree.Listing
}

var datasets = []datasetSpec{
	{"small", func(g *testutil.Generator) *tree.Listing { return g.Random(100) }},
	{"medium", func(g *testutil.Generator) *tree.Listing { return g.Random(10_000) }},
	{"large", func(g *testutil.Generator) *tree.Listing { return g.Random(100_000) }},
	{"wide", func(g *testutil.Generator) *tree.Listing { return g.Balanced(3, 40) }},
	{"deep", func(g *testutil.Generator) *tree.Listing { return g.Balanced(12, 2) }},
}

func main() {
	outputDir := filepath.Join("testdata", "bench")
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		// Reproducible per dataset.
		gen := testutil.NewDefault()
		l := ds.gen(gen)
		jsonl := testutil.ToJSONL(l)

		outputPath := filepath.Join(outputDir, ds.name+".jsonl")
		if err := os.WriteFile(outputPath, []byte(jsonl), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s (%d entries, %d bytes)\n", outputPath, l.Len(), len(jsonl))
	}

	fmt.Println("\nDone! Datasets created in", outputDir)
}
