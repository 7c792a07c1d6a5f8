package visible

import "github.com/vanderheijden86/ft/pkg/tree"

// Snapshot is the engine output that drives rendering.
type Snapshot struct {
	// Nodes are the visible nodes in depth-first pre-order.
	Nodes []tree.ID
	// Depths maps each visible node to its nesting depth (top level = 0).
	Depths map[tree.ID]int
	// Focused is the focused node, always a member of Nodes, or tree.None.
	Focused tree.ID
	// Expanded is the expanded set at the time of the snapshot.
	Expanded map[tree.ID]bool
	// Query is the applied search query ("" when unfiltered).
	Query string

	index map[tree.ID]int
}

// Len returns the number of visible nodes.
func (s Snapshot) Len() int { return len(s.Nodes) }

// IndexOf returns the position of id in Nodes, or -1.
func (s Snapshot) IndexOf(id tree.ID) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Contains reports whether id is visible.
func (s Snapshot) Contains(id tree.ID) bool {
	_, ok := s.index[id]
	return ok
}

// Depth returns the depth of a visible node, or -1.
func (s Snapshot) Depth(id tree.ID) int {
	if d, ok := s.Depths[id]; ok {
		return d
	}
	return -1
}

// IsExpanded reports whether id was expanded.
func (s Snapshot) IsExpanded(id tree.ID) bool { return s.Expanded[id] }

// FocusIndex returns the position of the focused node, or -1.
func (s Snapshot) FocusIndex() int {
	if s.Focused == tree.None {
		return -1
	}
	return s.IndexOf(s.Focused)
}
