package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/ft/pkg/testutil"
)

func BenchmarkLoadFile(b *testing.B) {
	for _, size := range []int{1000, 10000, 50000} {
		b.Run(fmt.Sprintf("entries=%d", size), func(b *testing.B) {
			dir := b.TempDir()
			path := filepath.Join(dir, "listing.jsonl")

			listing := testutil.QuickRandom(size)
			content := testutil.ToJSONL(listing)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				b.Fatalf("write listing: %v", err)
			}

			opts := ParseOptions{
				WarningHandler: func(string) {},
			}

			b.SetBytes(int64(len(content)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				loaded, err := LoadFile(path, opts)
				if err != nil {
					b.Fatalf("load listing: %v", err)
				}
				if loaded.Len() != listing.Len() {
					b.Fatalf("unexpected entry count: got=%d want=%d", loaded.Len(), listing.Len())
				}
			}
		})
	}
}
