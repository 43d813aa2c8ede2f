package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/theme"
)

// SavedMsg is sent after the settings were validated and written.
// Err is set when writing failed; Config is what the form produced.
type SavedMsg struct {
	Config model.AppConfig
	Err    error
}

// DoneMsg signals the settings view was closed without saving.
type DoneMsg struct{}

// formFields holds form values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formFields struct {
	baseURL  string
	timeout  string
	userID   string
	theme    string
	pageSize string
	refresh  string
}

// Model is the Bubble Tea model for the settings form.
type Model struct {
	form   *huh.Form
	ff     *formFields
	base   model.AppConfig
	path   string
	width  int
	height int
}

// New creates a settings view writing to path.
func New(path string, width, height int) Model {
	return Model{
		ff:     &formFields{},
		path:   path,
		width:  width,
		height: height,
	}
}

// Start fills the form from cfg and builds it.
func (m *Model) Start(cfg model.AppConfig) tea.Cmd {
	m.base = cfg
	*m.ff = formFields{
		baseURL:  cfg.API.BaseURL,
		timeout:  strconv.Itoa(cfg.API.TimeoutSec),
		userID:   strconv.Itoa(cfg.API.UserID),
		theme:    cfg.Display.Theme,
		pageSize: strconv.Itoa(cfg.Display.PageSize),
		refresh:  strconv.Itoa(cfg.Display.RefreshIntervalSec),
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Active reports whether the form is being edited.
func (m Model) Active() bool {
	return m.form != nil
}

// Update handles messages for the settings form.
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
		return m, m.save()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return DoneMsg{} }
	}

	return m, cmd
}

// View renders the settings form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	content := theme.TitleStyle.MarginBottom(1).Render("Settings") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
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
				Title("Base URL").
				Description("Root of the todo collection").
				Placeholder(model.DefaultBaseURL).
				Value(&m.ff.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Timeout (seconds)").
				Description("Per-request deadline, 0 for none").
				Value(&m.ff.timeout).
				Validate(validateNumber("Timeout", 0)),
			huh.NewInput().
				Title("User ID").
				Description("Owner of todos created here").
				Value(&m.ff.userID).
				Validate(validateNumber("User ID", 1)),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Theme").
				Options(
					huh.NewOption("Light", model.ThemeLight),
					huh.NewOption("Dark", model.ThemeDark),
				).
				Value(&m.ff.theme),
			huh.NewInput().
				Title("Page size").
				Value(&m.ff.pageSize).
				Validate(validateNumber("Page size", 1)),
			huh.NewInput().
				Title("Refresh interval (seconds)").
				Description("Automatic refetch period, 0 to disable").
				Value(&m.ff.refresh).
				Validate(validateNumber("Refresh interval", 0)),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)
}

// save applies the form to the base config and writes it.
func (m Model) save() tea.Cmd {
	cfg, err := m.ff.apply(m.base)
	path := m.path
	return func() tea.Msg {
		if err != nil {
			return SavedMsg{Config: cfg, Err: err}
		}
		if path == "" {
			return SavedMsg{Config: cfg}
		}
		return SavedMsg{Config: cfg, Err: model.SaveConfig(path, &cfg)}
	}
}

// apply returns base with the form values set.
func (f formFields) apply(base model.AppConfig) (model.AppConfig, error) {
	cfg := base
	cfg.API.BaseURL = strings.TrimSpace(f.baseURL)
	cfg.Display.Theme = f.theme

	for _, n := range []struct {
		dst *int
		val string
	}{
		{&cfg.API.TimeoutSec, f.timeout},
		{&cfg.API.UserID, f.userID},
		{&cfg.Display.PageSize, f.pageSize},
		{&cfg.Display.RefreshIntervalSec, f.refresh},
	} {
		v, err := strconv.Atoi(strings.TrimSpace(n.val))
		if err != nil {
			return base, fmt.Errorf("%q is not a number", n.val)
		}
		*n.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
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

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validateNumber(fieldName string, minimum int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s must be a number", fieldName)
		}
		if n < minimum {
			return fmt.Errorf("%s must be at least %d", fieldName, minimum)
		}
		return nil
	}
}
