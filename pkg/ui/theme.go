package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/jointscope/pkg/tree"
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

	// Item kinds
	Manager  lipgloss.AdaptiveColor
	Node     lipgloss.AdaptiveColor
	Property lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style
	Match    lipgloss.Style // substring hits inside a row
	Dimmed   lipgloss.Style // ancestors kept only for a matching descendant
	Prompt   lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Manager:  lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Node:     lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}, // Cyan
		Property: lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}, // Green

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Danger:    lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Success:   lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})
	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Bold(true)
	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(ThemeFg("#282A36")).
		Bold(true)
	t.Match = r.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}).
		Bold(true).
		Underline(true)
	t.Dimmed = r.NewStyle().Foreground(t.Muted).Faint(true)
	t.Prompt = r.NewStyle().Foreground(t.Primary).Bold(true)

	return t
}

// KindColor returns the accent color for an item type.
func (t Theme) KindColor(kind tree.ItemType) lipgloss.AdaptiveColor {
	switch kind {
	case tree.TypeManager:
		return t.Manager
	case tree.TypeNode:
		return t.Node
	case tree.TypeProperty:
		return t.Property
	}
	return t.Subtext
}

// KindBadge is the one-letter marker drawn before each row.
func KindBadge(kind tree.ItemType) string {
	switch kind {
	case tree.TypeManager:
		return "M"
	case tree.TypeNode:
		return "N"
	case tree.TypeProperty:
		return "P"
	}
	return "?"
}
