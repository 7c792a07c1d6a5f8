// Package nav turns directional key presses into focus and expansion
// changes on a visible.Engine.
//
// The controller never touches the screen. Follow-up work for the renderer
// (scrolling, moving input focus, activating a file) is pushed onto a
// tasks.Queue that the renderer drains after it has drawn the new snapshot.
package nav

import (
	"fmt"

	"github.com/vanderheijden86/ft/pkg/debug"
	"github.com/vanderheijden86/ft/pkg/search"
	"github.com/vanderheijden86/ft/pkg/tasks"
	"github.com/vanderheijden86/ft/pkg/tree"
	"github.com/vanderheijden86/ft/pkg/visible"
)

// Key identifies a key press as far as navigation is concerned.
type Key int

const (
	KeyOther Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
)

func (k Key) String() string {
	switch k {
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	case KeyEnter:
		return "enter"
	default:
		return "other"
	}
}

// Controller applies key presses to an engine.
type Controller struct {
	engine *visible.Engine
	queue  *tasks.Queue
}

// New returns a controller driving e. Tasks are pushed onto q.
func New(e *visible.Engine, q *tasks.Queue) *Controller {
	return &Controller{engine: e, queue: q}
}

// Engine returns the driven engine.
func (c *Controller) Engine() *visible.Engine { return c.engine }

// Queue returns the task queue.
func (c *Controller) Queue() *tasks.Queue { return c.queue }

// Start enqueues the tasks a freshly mounted explorer needs.
func (c *Controller) Start() {
	c.queue.Push(tasks.Attach())
	c.queue.Push(tasks.FocusTree())
	c.queue.Push(tasks.FocusSearch())
}

// HandleKey applies key to the current snapshot and reports whether the key
// was consumed. Unconsumed keys should be passed on to whatever else wants
// them (the search input, scrolling).
func (c *Controller) HandleKey(key Key) bool {
	snap := c.engine.Snapshot()
	debug.Log("nav: key %s, focus %d, %d visible", key, snap.Focused, snap.Len())

	if snap.Focused == tree.None {
		if snap.Len() == 0 {
			return false
		}
		switch key {
		case KeyDown:
			c.focus(snap.Nodes[0])
		case KeyUp:
			c.focus(snap.Nodes[snap.Len()-1])
		default:
			return false
		}
		return true
	}

	i := snap.IndexOf(snap.Focused)
	switch key {
	case KeyUp:
		if i == 0 {
			c.leave()
		} else {
			c.focus(snap.Nodes[i-1])
		}
	case KeyDown:
		if i == snap.Len()-1 {
			c.leave()
		} else {
			c.focus(snap.Nodes[i+1])
		}
	case KeyLeft:
		if snap.IsExpanded(snap.Focused) {
			c.setExpand(snap.Focused, false)
			break
		}
		if p, ok := parentInList(snap, i); ok {
			c.focus(p)
		}
	case KeyRight, KeyEnter:
		c.confirm(snap.Focused)
	default:
		return false
	}
	return true
}

// Toggle flips the expansion of id and focuses it, as a click on a row does.
func (c *Controller) Toggle(id tree.ID) error {
	if err := c.engine.ToggleExpand(id); err != nil {
		return err
	}
	c.focus(id)
	c.queue.Push(tasks.FocusTree())
	return nil
}

// Activate signals activation of the node at index i of the snapshot. For
// containers this toggles expansion instead.
func (c *Controller) Activate(i int) error {
	snap := c.engine.Snapshot()
	if i < 0 || i >= snap.Len() {
		return fmt.Errorf("%w: index %d", visible.ErrNotVisible, i)
	}
	id := snap.Nodes[i]
	if c.engine.Tree().Node(id).IsContainer() {
		return c.Toggle(id)
	}
	if err := c.engine.FocusNode(id); err != nil {
		return err
	}
	c.queue.Push(tasks.ActivatePath(c.engine.Tree().Node(id).Path))
	return nil
}

// ApplySearch hands a finished search to the engine and refreshes the
// renderer's key handling when it was applied.
func (c *Controller) ApplySearch(o search.Outcome) bool {
	if !c.engine.ApplySearch(o) {
		return false
	}
	c.queue.Push(tasks.Attach())
	return true
}

func (c *Controller) confirm(id tree.ID) {
	n := c.engine.Tree().Node(id)
	switch n.Kind {
	case tree.Container:
		c.setExpand(id, true)
	case tree.Leaf:
		c.queue.Push(tasks.ActivatePath(n.Path))
	default:
		panic(fmt.Sprintf("nav: unhandled node kind %v", n.Kind))
	}
}

func (c *Controller) setExpand(id tree.ID, expand bool) {
	if err := c.engine.SetExpand(id, expand); err != nil {
		debug.Log("nav: set expand %d: %v", id, err)
		return
	}
	c.focus(id)
	c.queue.Push(tasks.FocusSearch())
}

// focus moves focus to id, which must be visible, and asks the renderer to
// bring it into view.
func (c *Controller) focus(id tree.ID) {
	if err := c.engine.FocusNode(id); err != nil {
		debug.Log("nav: focus %d: %v", id, err)
		return
	}
	c.queue.Push(tasks.Scroll(c.engine.Snapshot().IndexOf(id)))
	c.queue.Push(tasks.FocusSearch())
	c.queue.Push(tasks.Attach())
}

func (c *Controller) leave() {
	_ = c.engine.FocusNode(tree.None)
	c.queue.Push(tasks.Attach())
	c.queue.Push(tasks.FocusSearch())
}

// parentInList walks backwards from position i to the nearest node that is
// shallower than nodes[i].
func parentInList(snap visible.Snapshot, i int) (tree.ID, bool) {
	d := snap.Depth(snap.Nodes[i])
	for j := i - 1; j >= 0; j-- {
		if snap.Depth(snap.Nodes[j]) < d {
			return snap.Nodes[j], true
		}
	}
	return tree.None, false
}
