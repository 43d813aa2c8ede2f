package todoform

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/mutation"
	"github.com/nhle/todoboard/internal/theme"
)

// SubmitMsg is dispatched when the user submits a valid draft.
type SubmitMsg struct {
	Draft model.Draft
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title     string
	completed bool
}

// Model is the Bubble Tea model for the new-todo form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	userID int
	width  int
	height int
}

// New creates a form creating todos on behalf of userID.
func New(userID, width, height int) Model {
	return Model{
		fb:     &formBindings{},
		userID: userID,
		width:  width,
		height: height,
	}
}

// StartCreate resets the fields and builds a fresh form.
func (m *Model) StartCreate() tea.Cmd {
	m.fb.title = ""
	m.fb.completed = false
	m.form = m.buildForm()
	return m.form.Init()
}

// Active reports whether a form is being edited.
func (m Model) Active() bool {
	return m.form != nil
}

// Update handles messages for the todo form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m, m.handleSubmit()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the todo form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	content := theme.TitleStyle.MarginBottom(1).Render("Add New Todo") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetUserID changes the owner of todos created from now on.
func (m *Model) SetUserID(id int) {
	m.userID = id
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("Add a new todo...").
				Value(&m.fb.title).
				Validate(mutation.ValidateTitle),
			huh.NewConfirm().
				Title("Already done?").
				Affirmative("Yes").
				Negative("No").
				Value(&m.fb.completed),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)
}

func (m Model) handleSubmit() tea.Cmd {
	draft := model.Draft{
		Title:     m.fb.title,
		Completed: m.fb.completed,
		UserID:    m.userID,
	}
	return func() tea.Msg { return SubmitMsg{Draft: draft} }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}
