package ui

import "github.com/charmbracelet/lipgloss"

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// Light mode colors tuned for WCAG AA compliance (contrast ratio >= 4.5:1)
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorText   = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorInfo   = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorDanger = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
)

// Row glyphs.
const (
	glyphExpanded  = "▾"
	glyphCollapsed = "▸"
	glyphLeaf      = " "
	glyphTruncated = "…"
	indentUnit     = "  "
)
