package ui

import (
	"bufio"
	"io"
	"strings"

	"github.com/vanderheijden86/ft/pkg/visible"
)

// WritePlain writes the engine's visible rows as indented text, one per
// line, with a trailing "/" on containers. It is the non-interactive
// rendering used when output is not a terminal.
func WritePlain(w io.Writer, e *visible.Engine) error {
	bw := bufio.NewWriter(w)
	snap := e.Snapshot()
	if snap.Len() == 0 {
		if _, err := bw.WriteString("No results found.\n"); err != nil {
			return err
		}
		return bw.Flush()
	}
	t := e.Tree()
	for _, id := range snap.Nodes {
		n := t.Node(id)
		bw.WriteString(strings.Repeat(indentUnit, snap.Depth(id)))
		bw.WriteString(n.Name)
		if n.IsContainer() {
			bw.WriteByte('/')
		}
		if n.Truncated {
			bw.WriteString(" " + glyphTruncated)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
