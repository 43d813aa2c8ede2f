package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/theme"
	"github.com/nhle/todoboard/internal/ui/command"
)

// runCommand executes a command palette line.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	c, err := command.Parse(line)
	if err != nil {
		m.flash = err.Error()
		m.flashErr = true
		return m, nil
	}

	switch c.Kind {
	case command.KindSort:
		m.todoList.SetSort(c.Sort)

	case command.KindPage:
		m.todoList.SetPage(c.Page)

	case command.KindTheme:
		if theme.Current().Name != c.Theme {
			cmd := m.toggleTheme()
			return m, cmd
		}

	case command.KindRefresh:
		return m, m.poller.RefreshAll()

	case command.KindAdd:
		m.flash = "Adding..."
		m.flashErr = false
		return m, m.createTodo(model.Draft{Title: c.Title, UserID: m.cfg.API.UserID})

	case command.KindQuit:
		return m.quit()
	}

	return m, nil
}
