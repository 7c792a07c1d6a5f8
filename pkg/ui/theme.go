package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed row styles, created once instead of per frame
	Container lipgloss.Style // Directory names
	Leaf      lipgloss.Style // File names
	Match     lipgloss.Style // Names matching the active query
	Context   lipgloss.Style // Ancestors kept only to reveal a match
	Indicator lipgloss.Style // ▸ ▾ markers
	MutedText lipgloss.Style // Status line, empty state
	ErrorText lipgloss.Style // Status line errors
	Prompt    lipgloss.Style // Search prompt
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"}, // Dim

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(ColorText)

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Container = r.NewStyle().Foreground(ColorInfo).Bold(true)
	t.Leaf = r.NewStyle().Foreground(ColorText)
	t.Match = r.NewStyle().Foreground(ThemeFg("#FFB86C")).Bold(true)
	t.Context = r.NewStyle().Foreground(t.Muted).Faint(true)
	t.Indicator = r.NewStyle().Foreground(t.Secondary)
	t.MutedText = r.NewStyle().Foreground(ColorMuted)
	t.ErrorText = r.NewStyle().Foreground(ColorDanger)
	t.Prompt = r.NewStyle().Foreground(t.Primary).Bold(true)

	return t
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
