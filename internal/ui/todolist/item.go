package todolist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/theme"
	"github.com/nhle/todoboard/internal/view"
)

// renderItem draws a single todo line.
func renderItem(t model.Todo, selected bool, width int) string {
	prefix := "○"
	if t.Completed {
		prefix = "✓"
	}

	badge := theme.CompletedStyle(t.Completed).Render(statusLabel(t))

	id := fmt.Sprintf("#%d", t.ID)
	if t.IsSpeculative() {
		id = "saving…"
	}
	idRendered := theme.DimmedStyle.Render(id)

	title := t.Title
	avail := width - lipgloss.Width(badge) - lipgloss.Width(idRendered) - 8
	if avail > 0 && lipgloss.Width(title) > avail {
		title = truncate(title, avail)
	}

	line := fmt.Sprintf("%s %s %s %s", prefix, title, idRendered, badge)
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	if t.Completed {
		return theme.ListItemStyle.Render(theme.DimmedStyle.Render(prefix+" "+title) + " " + idRendered + " " + badge)
	}
	return theme.ListItemStyle.Render(line)
}

func statusLabel(t model.Todo) string {
	if t.Completed {
		return "Completed"
	}
	return "Pending"
}

// renderPagination draws the previous/next controls around the page
// buttons of view.PageNumbers.
func renderPagination(current, total int) string {
	if total <= 1 {
		return ""
	}

	parts := []string{theme.DimmedStyle.Render("‹ Previous")}
	if current > 1 {
		parts[0] = theme.ListItemStyle.UnsetPaddingLeft().Render("‹ Previous")
	}

	for _, p := range view.PageNumbers(current, total) {
		if p == view.Ellipsis {
			parts = append(parts, theme.DimmedStyle.Render("…"))
			continue
		}
		parts = append(parts, theme.PageStyle(p == current).Render(fmt.Sprintf("%d", p)))
	}

	next := theme.DimmedStyle.Render("Next ›")
	if current < total {
		next = theme.ListItemStyle.UnsetPaddingLeft().Render("Next ›")
	}
	parts = append(parts, next)

	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
