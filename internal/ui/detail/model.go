package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoboard/internal/keys"
	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Model is the todo detail view component.
type Model struct {
	todo     *model.Todo
	mutation string
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		return m, func() tea.Msg {
			return BackMsg{}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.todo == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(theme.DimmedStyle.Render("No todo selected"))
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.todo == nil {
		return ""
	}

	t := m.todo
	var sections []string

	sections = append(sections, theme.TitleStyle.Render(t.Title))

	status := "Pending"
	if t.Completed {
		status = "Completed"
	}
	badges := []string{theme.CompletedStyle(t.Completed).Render(status)}
	if t.IsSpeculative() {
		badges = append(badges, "  ", theme.DimmedStyle.Render("waiting for the server"))
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, badges...), "")

	id := fmt.Sprintf("#%d", t.ID)
	if t.IsSpeculative() {
		id = "not assigned yet"
	}
	sections = append(sections,
		fmt.Sprintf("%s  %s", theme.DimmedStyle.Render("ID:  "), id),
		fmt.Sprintf("%s  %d", theme.DimmedStyle.Render("User:"), t.UserID),
	)
	if t.IsSpeculative() && m.mutation != "" {
		sections = append(sections, fmt.Sprintf("%s  %s", theme.DimmedStyle.Render("Ref: "), m.mutation))
	}

	separator := theme.DimmedStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "", theme.HelpStyle.Render("esc to go back"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetTodo updates the todo being displayed and re-renders the content.
func (m *Model) SetTodo(t model.Todo) {
	m.todo = &t
	m.mutation = ""
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// SetMutation names the create a speculative todo is waiting on.
func (m *Model) SetMutation(id string) {
	m.mutation = id
	m.viewport.SetContent(m.renderContent())
}

// Todo returns the displayed todo.
func (m Model) Todo() (model.Todo, bool) {
	if m.todo == nil {
		return model.Todo{}, false
	}
	return *m.todo, true
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
