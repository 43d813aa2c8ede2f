package todolist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoboard/internal/keys"
	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/querycache"
	"github.com/nhle/todoboard/internal/theme"
	"github.com/nhle/todoboard/internal/view"
)

// Model is the main todo list view component. It renders one derived
// page of the full list held in the query cache.
type Model struct {
	keys     *keys.KeyMap
	snap     querycache.Snapshot
	todos    []model.Todo
	sort     view.SortMode
	query    string
	page     int
	pageSize int
	cursor   int

	searchMode  bool
	searchInput textinput.Model
	spinner     spinner.Model

	width  int
	height int
}

// New creates a new todo list model.
func New(k *keys.KeyMap, pageSize, width, height int) Model {
	si := textinput.New()
	si.Placeholder = "search todos..."
	si.Prompt = "/ "
	si.Width = width - 4

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	if pageSize < 1 {
		pageSize = 1
	}

	return Model{
		keys:        k,
		sort:        view.SortDefault,
		page:        1,
		pageSize:    pageSize,
		searchInput: si,
		spinner:     sp,
		width:       width,
		height:      height,
	}
}

// Init starts the loading spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetSnapshot replaces the displayed result of the full-list query.
// A failed result shows the failure, never the previous list.
func (m *Model) SetSnapshot(snap querycache.Snapshot) {
	m.snap = snap
	if todos, ok := querycache.ValueOf[[]model.Todo](snap); ok {
		m.todos = todos
	} else if snap.Status == querycache.StatusFailed {
		m.todos = nil
	}
	m.clamp()
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Query returns the active search text.
func (m Model) Query() string {
	return m.query
}

// Selected returns the todo under the cursor.
func (m Model) Selected() (model.Todo, bool) {
	items := m.Result().Items
	if m.cursor < 0 || m.cursor >= len(items) {
		return model.Todo{}, false
	}
	return items[m.cursor], true
}

// Find returns the todo with the given id from the full list.
func (m Model) Find(id int) (model.Todo, bool) {
	for _, t := range m.todos {
		if t.ID == id {
			return t, true
		}
	}
	return model.Todo{}, false
}

// Result returns the page currently shown.
func (m Model) Result() view.Result {
	return view.Derive(m.todos, m.query, m.sort, m.page, m.pageSize)
}

// Update handles messages for the todo list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

// handleSearchKeys processes key input while in search mode. The list
// follows the input as it is typed.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil

	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.Reset()
		m.setQuery("")
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.setQuery(m.searchInput.Value())
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.query)
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Back):
		if m.query != "" {
			m.searchInput.Reset()
			m.setQuery("")
		}

	case key.Matches(msg, m.keys.CycleSort):
		m.SetSort(m.sort.Next())

	case key.Matches(msg, m.keys.PrevPage):
		m.SetPage(m.page - 1)

	case key.Matches(msg, m.keys.NextPage):
		m.SetPage(m.page + 1)

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.Result().Items)-1 {
			m.cursor++
		}
	}

	return m, nil
}

// SetSort changes the sort mode and goes back to the first page.
func (m *Model) SetSort(mode view.SortMode) {
	m.sort = mode
	m.page = 1
	m.cursor = 0
}

// SetPage jumps to page, clamped to the current result.
func (m *Model) SetPage(page int) {
	m.page = page
	m.cursor = 0
	m.clamp()
}

// setQuery changes the search and goes back to the first page.
func (m *Model) setQuery(q string) {
	if q == m.query {
		return
	}
	m.query = q
	m.page = 1
	m.cursor = 0
}

// clamp keeps page and cursor inside the current result.
func (m *Model) clamp() {
	res := m.Result()
	m.page = view.ClampPage(m.page, res.TotalPages)
	n := len(view.Derive(m.todos, m.query, m.sort, m.page, m.pageSize).Items)
	if m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// View renders the todo list view.
func (m Model) View() string {
	var sections []string

	if m.searchMode || m.query != "" {
		sections = append(sections, lipgloss.NewStyle().Padding(0, 1).Render(m.searchInput.View()))
	}

	switch {
	case m.snap.Status == querycache.StatusUninitialized, m.snap.IsLoading():
		sections = append(sections, m.renderCentered(m.spinner.View()+" Loading todos..."))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)

	case m.snap.Status == querycache.StatusFailed:
		sections = append(sections, m.renderCentered(
			theme.ErrorStyle.Render("Failed to load todos.")+"\n"+
				theme.DimmedStyle.Render("Press r to retry."),
		))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	res := m.Result()
	if len(res.Items) == 0 {
		msg := "No todos found."
		if m.query != "" {
			msg = fmt.Sprintf("No todos match %q.", m.query)
		}
		sections = append(sections, m.renderCentered(theme.DimmedStyle.Render(msg)))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	lines := make([]string, len(res.Items))
	for i, t := range res.Items {
		lines[i] = renderItem(t, i == m.cursor, m.width)
	}
	sections = append(sections, strings.Join(lines, "\n"))

	if bar := renderPagination(m.page, res.TotalPages); bar != "" {
		sections = append(sections, "", lipgloss.PlaceHorizontal(m.width, lipgloss.Center, bar))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Summary describes the current sort, search and page for the status bar.
func (m Model) Summary() string {
	res := m.Result()
	parts := []string{"sort: " + m.sort.Label()}
	if m.query != "" {
		parts = append(parts, fmt.Sprintf("search: %q (%d)", m.query, res.Total))
	}
	if res.TotalPages > 0 {
		parts = append(parts, fmt.Sprintf("page %d/%d", m.page, res.TotalPages))
	}
	if m.snap.Stale || (m.snap.Fetching && m.snap.Status == querycache.StatusSucceeded) {
		parts = append(parts, "refreshing")
	}
	return strings.Join(parts, " | ")
}

func (m Model) renderCentered(s string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(max(m.height-4, 3)).
		Align(lipgloss.Center, lipgloss.Center).
		Render(s)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.searchInput.Width = width - 4
}
