package stats

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/querycache"
	"github.com/nhle/todoboard/internal/theme"
	"github.com/nhle/todoboard/internal/view"
)

// Model renders the stats cards above the list.
type Model struct {
	snap  querycache.Snapshot
	width int
}

// New creates the stats view.
func New(width int) Model {
	return Model{width: width}
}

// SetSnapshot replaces the displayed result of the stats query.
func (m *Model) SetSnapshot(snap querycache.Snapshot) {
	m.snap = snap
}

// SetWidth updates the available width.
func (m *Model) SetWidth(width int) {
	m.width = width
}

// View renders three cards: total, completed and pending.
func (m Model) View() string {
	s, ok := querycache.ValueOf[model.Stats](m.snap)
	if !ok {
		text := "Loading stats..."
		if m.snap.Status == querycache.StatusFailed {
			text = theme.ErrorStyle.Render("Stats unavailable.")
		}
		return lipgloss.NewStyle().Padding(0, 1).Render(theme.DimmedStyle.Render(text))
	}

	p := theme.Current()
	cardWidth := max((m.width-6)/3, 14)
	cards := []string{
		card("Total", s.Total, "", p.Accent, cardWidth),
		card("Completed", s.Completed, fmt.Sprintf("%d%%", view.Percent(s.Completed, s.Total)), p.Green, cardWidth),
		card("Pending", s.Pending, fmt.Sprintf("%d%%", view.Percent(s.Pending, s.Total)), p.Yellow, cardWidth),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func card(label string, value int, note string, accent lipgloss.Color, width int) string {
	body := fmt.Sprintf("%s\n%s", theme.DimmedStyle.Render(label), lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d", value)))
	if note != "" {
		body += " " + theme.DimmedStyle.Render(note)
	}
	return theme.CardStyle(accent).Width(width).Render(body)
}
