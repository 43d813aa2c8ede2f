package app

import (
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/mutation"
	appsync "github.com/nhle/todoboard/internal/sync"
	"github.com/nhle/todoboard/internal/theme"
	"github.com/nhle/todoboard/internal/todoapi"
	"github.com/nhle/todoboard/internal/ui"
	"github.com/nhle/todoboard/internal/ui/command"
	settingsview "github.com/nhle/todoboard/internal/ui/config"
	"github.com/nhle/todoboard/internal/ui/detail"
	helpview "github.com/nhle/todoboard/internal/ui/help"
	statsview "github.com/nhle/todoboard/internal/ui/stats"
	"github.com/nhle/todoboard/internal/ui/todoform"
	"github.com/nhle/todoboard/internal/ui/todolist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewHelp
	ViewTodoCreate
	ViewDetail
	ViewCommand
	ViewSettings
)

// Deps are the collaborators of the root model.
type Deps struct {
	API        *todoapi.API
	Poller     *appsync.Poller
	Config     *model.AppConfig
	ConfigPath string
	Logger     *slog.Logger
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the query cache.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	api          *todoapi.API
	poller       *appsync.Poller
	cfg          model.AppConfig
	configPath   string
	logger       *slog.Logger
	keys         *KeyMap
	todoList     todolist.Model
	statsView    statsview.Model
	helpView     helpview.Model
	detailView   detail.Model
	commandView  command.Model
	settingsView settingsview.Model
	todoFormView todoform.Model
	flash        string
	flashErr     bool
	ready        bool
}

// New creates a new root application model.
func New(d Deps) Model {
	keys := DefaultKeyMap()

	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := model.DefaultAppConfig()
	if d.Config != nil {
		cfg = d.Config
	}
	theme.Apply(cfg.Display.Theme)

	return Model{
		currentView:  ViewList,
		api:          d.API,
		poller:       d.Poller,
		cfg:          *cfg,
		configPath:   d.ConfigPath,
		logger:       logger,
		keys:         keys,
		todoList:     todolist.New(keys, d.API.PageSize(), 80, 24),
		statsView:    statsview.New(80),
		helpView:     helpview.New(keys, 80, 24),
		detailView:   detail.New(keys, 80, 24),
		commandView:  command.New(80, 24),
		settingsView: settingsview.New(d.ConfigPath, 80, 24),
		todoFormView: todoform.New(cfg.API.UserID, 80, 24),
	}
}

// Init watches the list and stats queries and starts the poller.
func (m Model) Init() tea.Cmd {
	m.poller.Watch(m.api.AllTodos().Definition())
	m.poller.Watch(m.api.Stats().Definition())

	return tea.Batch(
		m.todoList.Init(),
		m.poller.Start(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.statsView.SetWidth(contentWidth)
		m.todoList.SetSize(contentWidth, contentHeight-statsHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.detailView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.settingsView.SetSize(contentWidth, contentHeight)
		m.todoFormView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.QueryMsg:
		if snap, ok := msg.Find(m.api.AllTodos().Key); ok {
			m.todoList.SetSnapshot(snap)
			if shown, ok := m.detailView.Todo(); ok {
				if t, ok := m.todoList.Find(shown.ID); ok {
					m.showDetail(t)
				}
			}
		}
		if snap, ok := msg.Find(m.api.Stats().Key); ok {
			m.statsView.SetSnapshot(snap)
		}
		return m, m.poller.WaitForNextResult()

	case spinner.TickMsg:
		// The spinner keeps ticking while other views are active.
		var cmd tea.Cmd
		m.todoList, cmd = m.todoList.Update(msg)
		return m, cmd

	case todoform.SubmitMsg:
		m.currentView = ViewList
		m.flash = "Adding..."
		m.flashErr = false
		return m, m.createTodo(msg.Draft)

	case todoform.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case settingsview.SavedMsg:
		m.currentView = ViewList
		return m.applySettings(msg)

	case detail.BackMsg, command.CancelMsg, settingsview.DoneMsg:
		m.currentView = ViewList
		return m, nil

	case command.CommandMsg:
		m.currentView = ViewList
		return m.runCommand(string(msg))

	case todoCreatedResultMsg:
		if mutation.IsValidationError(msg.err) {
			m.flash = msg.err.Error()
			m.flashErr = true
			return m, nil
		}
		if msg.err != nil {
			m.flash = "Failed to add todo. Please try again."
			m.flashErr = true
			return m, nil
		}
		m.flash = "Todo added successfully!"
		m.flashErr = false
		return m, nil

	case themeSavedMsg:
		if msg.err != nil {
			m.flash = "Could not save theme: " + msg.err.Error()
			m.flashErr = true
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}

		switch m.currentView {
		case ViewHelp:
			if key.Matches(msg, m.keys.Help, m.keys.Back) {
				m.currentView = m.previousView
				return m, nil
			}

		case ViewList:
			if m.todoList.Searching() {
				break
			}
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m.quit()

			case key.Matches(msg, m.keys.Help):
				m.previousView = m.currentView
				m.currentView = ViewHelp
				return m, nil

			case key.Matches(msg, m.keys.Add):
				m.previousView = m.currentView
				m.currentView = ViewTodoCreate
				m.flash = ""
				cmd := m.todoFormView.StartCreate()
				return m, cmd

			case key.Matches(msg, m.keys.Command):
				m.previousView = m.currentView
				m.currentView = ViewCommand
				m.flash = ""
				cmd := m.commandView.Focus()
				return m, cmd

			case key.Matches(msg, m.keys.Settings):
				m.previousView = m.currentView
				m.currentView = ViewSettings
				m.flash = ""
				cmd := m.settingsView.Start(m.cfg)
				return m, cmd

			case key.Matches(msg, m.keys.Open):
				if t, ok := m.todoList.Selected(); ok {
					m.showDetail(t)
					m.previousView = m.currentView
					m.currentView = ViewDetail
				}
				return m, nil

			case key.Matches(msg, m.keys.Refresh):
				return m, m.poller.RefreshAll()

			case key.Matches(msg, m.keys.ToggleTheme):
				cmd := m.toggleTheme()
				return m, cmd
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.todoList, cmd = m.todoList.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewTodoCreate:
		m.todoFormView, cmd = m.todoFormView.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	}

	return m, cmd
}

// statsHeight is the number of lines taken by the stats cards.
const statsHeight = 4

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("My Todos", ui.SyncState{
		Pending:     m.api.Pending(),
		LastRefresh: m.poller.LastRefresh(),
	})
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.notice(), m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHelp:
		return m.helpView.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewCommand:
		return lipgloss.JoinVertical(lipgloss.Left, m.commandView.View(), m.todoList.View())
	case ViewSettings:
		return m.settingsView.View()
	case ViewTodoCreate:
		return lipgloss.JoinVertical(lipgloss.Left, m.statsView.View(), m.todoFormView.View())
	default:
		return lipgloss.JoinVertical(lipgloss.Left, m.statsView.View(), m.todoList.View())
	}
}

// notice returns the flash message; it only shows on the list.
func (m Model) notice() ui.Notice {
	if m.currentView != ViewList || m.todoList.Searching() {
		return ui.Notice{}
	}
	return ui.Notice{Text: m.flash, Err: m.flashErr}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewTodoCreate:
		return "enter submit | esc cancel"
	case ViewDetail:
		return "esc back"
	case ViewCommand:
		return "enter run | esc cancel"
	case ViewSettings:
		return "enter next | esc cancel"
	}

	if m.todoList.Searching() {
		return "type to search | enter done | esc clear"
	}
	if m.flash != "" {
		return m.todoList.Summary()
	}
	return m.todoList.Summary() + " | q quit | ? help | n new | enter open | / search | : command"
}

// showDetail loads t into the detail view, with the mutation id of an
// unconfirmed create.
func (m *Model) showDetail(t model.Todo) {
	m.detailView.SetTodo(t)
	if !t.IsSpeculative() {
		return
	}
	if f, ok := m.api.PendingCreate(t.ID); ok {
		m.detailView.SetMutation(f.ID)
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.poller.Stop()
	return m, tea.Quit
}
