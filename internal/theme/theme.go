package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoboard/internal/model"
)

// Palette is the set of colors of one theme.
type Palette struct {
	Name    string
	Accent  lipgloss.Color
	Green   lipgloss.Color
	Yellow  lipgloss.Color
	Red     lipgloss.Color
	Gray    lipgloss.Color
	Text    lipgloss.Color
	OnFill  lipgloss.Color
	Subtle  lipgloss.Color
	Border  lipgloss.Color
	Surface lipgloss.Color
}

// Light and Dark mirror the two modes of the dashboard.
var (
	Light = Palette{
		Name:    model.ThemeLight,
		Accent:  "#2563EB",
		Green:   "#16A34A",
		Yellow:  "#CA8A04",
		Red:     "#DC2626",
		Gray:    "#6B7280",
		Text:    "#111827",
		OnFill:  "#FFFFFF",
		Subtle:  "#D1D5DB",
		Border:  "#E5E7EB",
		Surface: "#F9FAFB",
	}
	Dark = Palette{
		Name:    model.ThemeDark,
		Accent:  "#3B82F6",
		Green:   "#4ADE80",
		Yellow:  "#FACC15",
		Red:     "#F87171",
		Gray:    "#9CA3AF",
		Text:    "#F3F4F6",
		OnFill:  "#F9FAFB",
		Subtle:  "#374151",
		Border:  "#4B5563",
		Surface: "#111827",
	}
)

var current Palette

// Styles of the active palette. Apply rebuilds them.
var (
	// HeaderStyle is used for the application title bar.
	HeaderStyle lipgloss.Style

	// StatusBarStyle is used for the bottom status bar.
	StatusBarStyle lipgloss.Style

	// PanelStyle wraps a titled section such as the form or the list.
	PanelStyle lipgloss.Style

	TitleStyle lipgloss.Style

	// ListItemStyle is the base style for items in a list.
	ListItemStyle lipgloss.Style

	// SelectedItemStyle highlights the currently focused list item.
	SelectedItemStyle lipgloss.Style

	// HelpStyle is used for keyboard shortcut hints and help text.
	HelpStyle lipgloss.Style

	DimmedStyle  lipgloss.Style
	ErrorStyle   lipgloss.Style
	SuccessStyle lipgloss.Style
)

func init() {
	Apply(model.ThemeLight)
}

// Apply activates the palette with the given name. Unknown names fall
// back to light.
func Apply(name string) {
	p := Light
	if name == model.ThemeDark {
		p = Dark
	}
	current = p

	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.OnFill).
		Background(p.Accent).
		Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(p.Text).
		Background(p.Subtle).
		Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border)

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Text)

	ListItemStyle = lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(p.Text)

	SelectedItemStyle = lipgloss.NewStyle().
		PaddingLeft(1).
		Bold(true).
		Foreground(p.Accent).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(p.Accent)

	HelpStyle = lipgloss.NewStyle().
		Foreground(p.Gray).
		Italic(true)

	DimmedStyle = lipgloss.NewStyle().Foreground(p.Gray)
	ErrorStyle = lipgloss.NewStyle().Foreground(p.Red)
	SuccessStyle = lipgloss.NewStyle().Foreground(p.Green)
}

// Current returns the active palette.
func Current() Palette {
	return current
}

// Toggle switches between light and dark and returns the new name.
func Toggle() string {
	next := model.ThemeDark
	if current.Name == model.ThemeDark {
		next = model.ThemeLight
	}
	Apply(next)
	return next
}

// CompletedStyle returns the status badge style of a todo.
func CompletedStyle(completed bool) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	if completed {
		return base.Foreground(current.Green)
	}
	return base.Foreground(current.Yellow)
}

// CardStyle returns the style of a stats card with the given accent.
func CardStyle(accent lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Padding(0, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Foreground(accent)
}

// PageStyle returns the style of a page button.
func PageStyle(active bool) lipgloss.Style {
	base := lipgloss.NewStyle().Padding(0, 1)
	if active {
		return base.Bold(true).Foreground(current.OnFill).Background(current.Accent)
	}
	return base.Foreground(current.Text)
}
