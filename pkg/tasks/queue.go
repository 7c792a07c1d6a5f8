// Package tasks is the queue of deferred side effects the explorer asks the
// renderer to perform once the new state is on screen.
package tasks

import "fmt"

// Kind identifies a deferred side effect.
type Kind int

const (
	// FocusSearchInput moves keyboard focus to the search box.
	FocusSearchInput Kind = iota
	// FocusExplorer moves keyboard focus to the tree panel.
	FocusExplorer
	// ScrollTo scrolls the row at Index into view.
	ScrollTo
	// AttachNavigation re-wires navigation handling on freshly rendered rows.
	AttachNavigation
	// Activate opens the leaf at Path.
	Activate
)

func (k Kind) String() string {
	switch k {
	case FocusSearchInput:
		return "focus-search-input"
	case FocusExplorer:
		return "focus-explorer"
	case ScrollTo:
		return "scroll-to"
	case AttachNavigation:
		return "attach-navigation"
	case Activate:
		return "activate"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Task is one tagged command.
type Task struct {
	Kind  Kind
	Index int    // ScrollTo
	Path  string // Activate
}

func (t Task) String() string {
	switch t.Kind {
	case ScrollTo:
		return fmt.Sprintf("%s(%d)", t.Kind, t.Index)
	case Activate:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Path)
	default:
		return t.Kind.String()
	}
}

// Constructors for each task kind.
func FocusSearch() Task          { return Task{Kind: FocusSearchInput} }
func FocusTree() Task            { return Task{Kind: FocusExplorer} }
func Scroll(index int) Task      { return Task{Kind: ScrollTo, Index: index} }
func Attach() Task               { return Task{Kind: AttachNavigation} }
func ActivatePath(p string) Task { return Task{Kind: Activate, Path: p} }

// Queue accumulates tasks during a state change. The renderer drains it
// after drawing; each task runs exactly once, in enqueue order.
type Queue struct {
	items []Task
}

// Push appends a task.
func (q *Queue) Push(t Task) {
	q.items = append(q.items, t)
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int { return len(q.items) }

// Pending returns a copy of the pending tasks without removing them.
func (q *Queue) Pending() []Task {
	out := make([]Task, len(q.items))
	copy(out, q.items)
	return out
}

// Drain runs fn on every pending task and empties the queue. Tasks pushed
// by fn while draining run in the same pass, after the ones already queued.
func (q *Queue) Drain(fn func(Task)) {
	for i := 0; i < len(q.items); i++ {
		fn(q.items[i])
	}
	q.items = q.items[:0]
}
