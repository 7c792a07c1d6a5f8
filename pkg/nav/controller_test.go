package nav_test

import (
	"context"
	"io"
	"log"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/ft/pkg/nav"
	"github.com/vanderheijden86/ft/pkg/tasks"
	"github.com/vanderheijden86/ft/pkg/testutil"
	"github.com/vanderheijden86/ft/pkg/tree"
	"github.com/vanderheijden86/ft/pkg/visible"
)

func newController(t testing.TB, tr *tree.Tree, opts ...visible.Option) *nav.Controller {
	t.Helper()
	opts = append([]visible.Option{visible.WithLogger(log.New(io.Discard, "", 0))}, opts...)
	return nav.New(visible.New(tr, opts...), &tasks.Queue{})
}

func drained(c *nav.Controller) []string {
	var out []string
	c.Queue().Drain(func(t tasks.Task) { out = append(out, t.String()) })
	return out
}

func focusedPath(c *nav.Controller) string {
	id := c.Engine().Focused()
	if id == tree.None {
		return ""
	}
	return c.Engine().Tree().Node(id).Path
}

func TestNoFocusDownFocusesFirst(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t))
	if !c.HandleKey(nav.KeyDown) {
		t.Fatal("expected key consumed")
	}
	if got := focusedPath(c); got != "src" {
		t.Errorf("expected src focused, got %q", got)
	}
	want := []string{"scroll-to(0)", "focus-search-input", "attach-navigation"}
	if got := drained(c); !reflect.DeepEqual(got, want) {
		t.Errorf("tasks = %v, want %v", got, want)
	}
}

func TestNoFocusUpFocusesLast(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t))
	if !c.HandleKey(nav.KeyUp) {
		t.Fatal("expected key consumed")
	}
	if got := focusedPath(c); got != "readme.md" {
		t.Errorf("expected readme.md focused, got %q", got)
	}
	if got := drained(c); got[0] != "scroll-to(1)" {
		t.Errorf("expected scroll to last row first, got %v", got)
	}
}

func TestNoFocusOtherKeysBubble(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t))
	for _, k := range []nav.Key{nav.KeyLeft, nav.KeyRight, nav.KeyEnter, nav.KeyOther} {
		if c.HandleKey(k) {
			t.Errorf("%s without focus should bubble", k)
		}
	}
	if c.Queue().Len() != 0 {
		t.Errorf("bubbled keys must not enqueue tasks, got %v", c.Queue().Pending())
	}
}

func TestEmptyListBubblesEverything(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t))
	c.Engine().SearchSync(context.Background(), "nothing-matches")
	c.Queue().Drain(func(tasks.Task) {})

	for _, k := range []nav.Key{nav.KeyUp, nav.KeyDown, nav.KeyLeft, nav.KeyRight, nav.KeyEnter, nav.KeyOther} {
		if c.HandleKey(k) {
			t.Errorf("%s on an empty list should bubble", k)
		}
	}
}

func TestUpDownWithinList(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t), visible.WithExpanded("src"))
	_ = c.Engine().FocusPath("src/index.js")

	c.HandleKey(nav.KeyDown)
	if got := focusedPath(c); got != "readme.md" {
		t.Errorf("down: expected readme.md, got %q", got)
	}
	c.HandleKey(nav.KeyUp)
	c.HandleKey(nav.KeyUp)
	if got := focusedPath(c); got != "src" {
		t.Errorf("up twice: expected src, got %q", got)
	}
}

func TestUpFromFirstLeavesList(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t))
	_ = c.Engine().FocusPath("src")

	if !c.HandleKey(nav.KeyUp) {
		t.Fatal("expected key consumed")
	}
	if c.Engine().Focused() != tree.None {
		t.Error("expected focus cleared")
	}
	want := []string{"attach-navigation", "focus-search-input"}
	if got := drained(c); !reflect.DeepEqual(got, want) {
		t.Errorf("tasks = %v, want %v", got, want)
	}
}

func TestDownFromLastLeavesList(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t))
	_ = c.Engine().FocusPath("readme.md")

	if !c.HandleKey(nav.KeyDown) {
		t.Fatal("expected key consumed")
	}
	if c.Engine().Focused() != tree.None {
		t.Error("expected focus cleared")
	}
	if got := drained(c); got[len(got)-1] != "focus-search-input" {
		t.Errorf("expected search input refocused, got %v", got)
	}
}

func TestLeftGoesToParent(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t), visible.WithExpanded("src"))
	_ = c.Engine().FocusPath("src/index.js")

	if !c.HandleKey(nav.KeyLeft) {
		t.Fatal("expected key consumed")
	}
	if got := focusedPath(c); got != "src" {
		t.Errorf("expected src focused, got %q", got)
	}
	testutil.AssertPaths(t, c.Engine().Tree(), c.Engine().Snapshot().Nodes, "src", "src/index.js", "readme.md")
}

func TestLeftCollapsesExpanded(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t), visible.WithExpanded("src"))
	_ = c.Engine().FocusPath("src")

	if !c.HandleKey(nav.KeyLeft) {
		t.Fatal("expected key consumed")
	}
	snap := c.Engine().Snapshot()
	if got := focusedPath(c); got != "src" {
		t.Errorf("focus should stay on src, got %q", got)
	}
	testutil.AssertPaths(t, c.Engine().Tree(), snap.Nodes, "src", "readme.md")
}

func TestLeftAtTopLevelIsConsumedNoop(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t))
	_ = c.Engine().FocusPath("readme.md")
	before := c.Engine().Snapshot()

	if !c.HandleKey(nav.KeyLeft) {
		t.Fatal("left while focused is always consumed")
	}
	if !reflect.DeepEqual(before, c.Engine().Snapshot()) {
		t.Error("left with no parent must not change state")
	}
	if c.Queue().Len() != 0 {
		t.Errorf("expected no tasks, got %v", c.Queue().Pending())
	}
}

func TestLeftSkipsDeeperSiblings(t *testing.T) {
	tr := testutil.MustTree(t, "a/", "a/b/", "a/b/x.go", "a/c.go")
	c := newController(t, tr, visible.WithExpandDepth(3))
	_ = c.Engine().FocusPath("a/c.go")

	c.HandleKey(nav.KeyLeft)
	if got := focusedPath(c); got != "a" {
		t.Errorf("expected a, got %q", got)
	}
}

func TestConfirmContainerExpands(t *testing.T) {
	for _, k := range []nav.Key{nav.KeyRight, nav.KeyEnter} {
		t.Run(k.String(), func(t *testing.T) {
			c := newController(t, testutil.SampleRepo(t))
			_ = c.Engine().FocusPath("src")

			if !c.HandleKey(k) {
				t.Fatal("expected key consumed")
			}
			if got := focusedPath(c); got != "src" {
				t.Errorf("focus should stay on src, got %q", got)
			}
			testutil.AssertPaths(t, c.Engine().Tree(), c.Engine().Snapshot().Nodes, "src", "src/index.js", "readme.md")
			want := []string{"scroll-to(0)", "focus-search-input", "attach-navigation", "focus-search-input"}
			if got := drained(c); !reflect.DeepEqual(got, want) {
				t.Errorf("tasks = %v, want %v", got, want)
			}
		})
	}
}

func TestConfirmLeafActivates(t *testing.T) {
	for _, k := range []nav.Key{nav.KeyRight, nav.KeyEnter} {
		t.Run(k.String(), func(t *testing.T) {
			c := newController(t, testutil.SampleRepo(t), visible.WithExpanded("src"))
			_ = c.Engine().FocusPath("src/index.js")
			before := c.Engine().Snapshot()

			if !c.HandleKey(k) {
				t.Fatal("expected key consumed")
			}
			if !reflect.DeepEqual(before, c.Engine().Snapshot()) {
				t.Error("activation must not change engine state")
			}
			want := []string{"activate(src/index.js)"}
			if got := drained(c); !reflect.DeepEqual(got, want) {
				t.Errorf("tasks = %v, want %v", got, want)
			}
		})
	}
}

func TestOtherKeyWhileFocusedBubbles(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t))
	_ = c.Engine().FocusPath("src")
	if c.HandleKey(nav.KeyOther) {
		t.Error("unhandled key should bubble")
	}
}

func TestToggleFocusesAndRefocusesExplorer(t *testing.T) {
	tr := testutil.SampleRepo(t)
	c := newController(t, tr)
	src := testutil.MustLookup(t, tr, "src")

	if err := c.Toggle(src); err != nil {
		t.Fatal(err)
	}
	if !c.Engine().IsExpanded(src) || c.Engine().Focused() != src {
		t.Error("expected src expanded and focused")
	}
	got := drained(c)
	if got[len(got)-1] != "focus-explorer" {
		t.Errorf("expected explorer focus last, got %v", got)
	}

	if err := c.Toggle(testutil.MustLookup(t, tr, "readme.md")); err == nil {
		t.Error("toggling a leaf should fail")
	}
}

func TestActivateByIndex(t *testing.T) {
	tr := testutil.SampleRepo(t)
	c := newController(t, tr)

	if err := c.Activate(1); err != nil {
		t.Fatal(err)
	}
	if got := drained(c); !reflect.DeepEqual(got, []string{"activate(readme.md)"}) {
		t.Errorf("unexpected tasks %v", got)
	}
	if err := c.Activate(0); err != nil {
		t.Fatal(err)
	}
	if !c.Engine().IsExpanded(testutil.MustLookup(t, tr, "src")) {
		t.Error("activating a container row should toggle it")
	}
	if err := c.Activate(42); err == nil {
		t.Error("out of range index should fail")
	}
}

func TestStartQueuesMountTasks(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t))
	c.Start()
	want := []string{"attach-navigation", "focus-explorer", "focus-search-input"}
	if got := drained(c); !reflect.DeepEqual(got, want) {
		t.Errorf("tasks = %v, want %v", got, want)
	}
}

func TestApplySearchAttachesOnlyWhenApplied(t *testing.T) {
	c := newController(t, testutil.SampleRepo(t))
	old := c.Engine().Search(context.Background(), "src")
	cur := c.Engine().Search(context.Background(), "readme")

	if c.ApplySearch(old.Run()) {
		t.Error("stale search applied")
	}
	if c.Queue().Len() != 0 {
		t.Error("stale search must not enqueue tasks")
	}
	if !c.ApplySearch(cur.Run()) {
		t.Error("current search discarded")
	}
	if got := drained(c); !reflect.DeepEqual(got, []string{"attach-navigation"}) {
		t.Errorf("unexpected tasks %v", got)
	}
}

func TestKeySequencesKeepFocusVisibleProperty(t *testing.T) {
	keys := []nav.Key{nav.KeyUp, nav.KeyDown, nav.KeyLeft, nav.KeyRight, nav.KeyEnter, nav.KeyOther}
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64Range(1, 1<<40).Draw(rt, "seed")
		tr, err := tree.Build(testutil.New(testutil.GeneratorConfig{Seed: seed}).Random(25))
		if err != nil {
			rt.Fatal(err)
		}
		c := nav.New(visible.New(tr), &tasks.Queue{})

		n := rapid.IntRange(1, 50).Draw(rt, "presses")
		for i := 0; i < n; i++ {
			k := rapid.SampledFrom(keys).Draw(rt, "key")
			before := c.Engine().Snapshot()
			consumed := c.HandleKey(k)

			wantConsumed := before.Len() > 0 && k != nav.KeyOther &&
				(before.Focused != tree.None || k == nav.KeyUp || k == nav.KeyDown)
			if consumed != wantConsumed {
				rt.Fatalf("HandleKey(%s) consumed=%v, want %v", k, consumed, wantConsumed)
			}

			snap := c.Engine().Snapshot()
			if snap.Focused != tree.None && !snap.Contains(snap.Focused) {
				rt.Fatalf("focus %d outside visible list", snap.Focused)
			}
			c.Queue().Drain(func(task tasks.Task) {
				if task.Kind == tasks.ScrollTo && (task.Index < 0 || task.Index >= snap.Len()) {
					rt.Fatalf("scroll to %d outside %d rows", task.Index, snap.Len())
				}
			})
		}
	})
}
