package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/ft/pkg/nav"
)

// KeyMap defines all keyboard shortcuts. Letters are left to the search
// input, so commands live on arrows and control chords.
type KeyMap struct {
	// Navigation, handed to nav.Controller
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Enter key.Binding

	// Window scrolling
	PageUp   key.Binding
	PageDown key.Binding

	// Commands
	SwitchFocus key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	CopyPath    key.Binding
	Reload      key.Binding
	Clear       key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "move down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "collapse/parent"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "expand/open"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "expand/open"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		SwitchFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "search/tree"),
		),
		ExpandAll: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "expand all"),
		),
		CollapseAll: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "collapse all"),
		),
		CopyPath: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy path"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear/quit"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.SwitchFocus, k.ExpandAll, k.CollapseAll, k.Clear}
}

// navKey maps a key press onto the navigation alphabet. Disabled bindings
// map to nav.KeyOther.
func (k KeyMap) navKey(msg tea.KeyMsg) nav.Key {
	switch {
	case key.Matches(msg, k.Up):
		return nav.KeyUp
	case key.Matches(msg, k.Down):
		return nav.KeyDown
	case key.Matches(msg, k.Left):
		return nav.KeyLeft
	case key.Matches(msg, k.Right):
		return nav.KeyRight
	case key.Matches(msg, k.Enter):
		return nav.KeyEnter
	default:
		return nav.KeyOther
	}
}
