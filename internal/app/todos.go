package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/theme"
	settingsview "github.com/nhle/todoboard/internal/ui/config"
)

// todoCreatedResultMsg is sent after the server answered a create.
type todoCreatedResultMsg struct {
	todo model.Todo
	err  error
}

// themeSavedMsg is sent after the theme preference was written.
type themeSavedMsg struct{ err error }

// createTodo submits draft through the mutation coordinator. The list
// shows the new todo as soon as the command starts.
func (m *Model) createTodo(draft model.Draft) tea.Cmd {
	api := m.api
	logger := m.logger
	return func() tea.Msg {
		todo, err := api.CreateTodo(context.Background(), draft)
		if err != nil {
			logger.Warn("failed to create todo", "error", err)
		}
		return todoCreatedResultMsg{todo: todo, err: err}
	}
}

// toggleTheme switches palettes and persists the choice.
func (m *Model) toggleTheme() tea.Cmd {
	m.cfg.Display.Theme = theme.Toggle()
	if m.configPath == "" {
		return nil
	}

	cfg := m.cfg
	path := m.configPath
	return func() tea.Msg {
		return themeSavedMsg{err: model.SaveConfig(path, &cfg)}
	}
}

// applySettings takes over a saved settings form. Theme and user id
// apply at once; connection and paging settings on the next start.
func (m Model) applySettings(msg settingsview.SavedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.flash = "Settings not saved: " + msg.Err.Error()
		m.flashErr = true
		return m, nil
	}

	prev := m.cfg
	m.cfg = msg.Config
	theme.Apply(m.cfg.Display.Theme)
	m.todoFormView.SetUserID(m.cfg.API.UserID)

	m.flash = "Settings saved."
	m.flashErr = false
	if prev.API.BaseURL != m.cfg.API.BaseURL ||
		prev.API.TimeoutSec != m.cfg.API.TimeoutSec ||
		prev.Display.PageSize != m.cfg.Display.PageSize ||
		prev.Display.RefreshIntervalSec != m.cfg.Display.RefreshIntervalSec {
		m.flash = "Settings saved. Restart to apply connection and paging changes."
	}
	return m, nil
}
