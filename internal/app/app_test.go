package app

import (
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/querycache"
	"github.com/nhle/todoboard/internal/remote"
	appsync "github.com/nhle/todoboard/internal/sync"
	"github.com/nhle/todoboard/internal/theme"
	"github.com/nhle/todoboard/internal/todoapi"
	"github.com/nhle/todoboard/internal/ui/command"
	settingsview "github.com/nhle/todoboard/internal/ui/config"
	"github.com/nhle/todoboard/internal/ui/todoform"
	"github.com/nhle/todoboard/tests/testutil"
)

func newTestModel(t *testing.T) (Model, *testutil.FakeCollection, string) {
	t.Helper()

	srv := testutil.NewFakeCollection(t, testutil.SampleTodos())
	store := querycache.New()
	api := todoapi.New(remote.NewClient(srv.URL), store, todoapi.WithPageSize(2))
	poller := appsync.New(store)
	t.Cleanup(poller.Stop)
	t.Cleanup(func() { theme.Apply(model.ThemeLight) })

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	m := New(Deps{API: api, Poller: poller, ConfigPath: cfgPath})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), srv, cfgPath
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_ViewBeforeSize(t *testing.T) {
	srv := testutil.NewFakeCollection(t, nil)
	store := querycache.New()
	api := todoapi.New(remote.NewClient(srv.URL), store)

	m := New(Deps{API: api, Poller: appsync.New(store)})
	assert.Equal(t, "Loading...", m.View())
}

func TestModel_QueryMsgRoutesSnapshots(t *testing.T) {
	m, _, _ := newTestModel(t)

	todos := testutil.SampleTodos()
	next, cmd := m.Update(appsync.QueryMsg{Snapshots: []querycache.Snapshot{
		{Key: m.api.AllTodos().Key, Status: querycache.StatusSucceeded, Value: todos, Version: 1},
		{Key: m.api.Stats().Key, Status: querycache.StatusSucceeded, Value: model.Stats{Total: 3, Completed: 1, Pending: 2}, Version: 1},
	}})
	m = next.(Model)

	assert.NotNil(t, cmd, "should keep listening for query results")

	res := m.todoList.Result()
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.TotalPages)
	assert.Len(t, res.Items, 2)

	out := m.View()
	assert.Contains(t, out, "My Todos")
	assert.Contains(t, out, "Total")
}

func TestModel_FailedListShowsRetryHint(t *testing.T) {
	m, _, _ := newTestModel(t)

	next, _ := m.Update(appsync.QueryMsg{Snapshots: []querycache.Snapshot{
		{Key: m.api.AllTodos().Key, Status: querycache.StatusFailed, Err: errors.New("boom"), Version: 1},
	}})
	m = next.(Model)

	assert.Contains(t, m.View(), "Press r to retry.")
}

func TestModel_KeyRouting(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = press(t, m, runes("?"))
	assert.Equal(t, ViewHelp, m.currentView)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, m.currentView)

	m, _ = press(t, m, runes("n"))
	assert.Equal(t, ViewTodoCreate, m.currentView)

	next, _ := m.Update(todoform.CancelMsg{})
	m = next.(Model)
	assert.Equal(t, ViewList, m.currentView)
}

func TestModel_SearchModeSwallowsGlobalKeys(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = press(t, m, runes("/"))
	require.True(t, m.todoList.Searching())

	m, _ = press(t, m, runes("q"))
	assert.Equal(t, ViewList, m.currentView)
	assert.Equal(t, "q", m.todoList.Query(), "q while searching should type, not quit")
}

func TestModel_SubmitCreatesTodo(t *testing.T) {
	m, srv, _ := newTestModel(t)

	next, cmd := m.Update(todoform.SubmitMsg{Draft: model.Draft{Title: "Buy milk", UserID: 1}})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, "Adding...", m.flash)

	next, _ = m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, "Todo added successfully!", m.flash)
	assert.False(t, m.flashErr)
	assert.Equal(t, int64(1), srv.Posts())
}

func TestModel_SubmitFailureShowsNotice(t *testing.T) {
	m, srv, _ := newTestModel(t)
	srv.FailPosts(true)

	next, cmd := m.Update(todoform.SubmitMsg{Draft: model.Draft{Title: "Buy milk", UserID: 1}})
	m = next.(Model)
	next, _ = m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, "Failed to add todo. Please try again.", m.flash)
	assert.True(t, m.flashErr)
}

func TestModel_ToggleThemePersists(t *testing.T) {
	m, _, cfgPath := newTestModel(t)

	m, cmd := press(t, m, runes("T"))
	require.NotNil(t, cmd)
	assert.Equal(t, model.ThemeDark, theme.Current().Name)
	assert.Equal(t, model.ThemeDark, m.cfg.Display.Theme)

	msg := cmd()
	saved, ok := msg.(themeSavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)

	cfg, err := model.LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, cfg.Display.Theme)
}

func TestModel_QuitStopsPoller(t *testing.T) {
	m, _, _ := newTestModel(t)

	_, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Nil(t, m.poller.Start(), "stopped poller should not restart")
}

func TestModel_OpenDetailAndBack(t *testing.T) {
	m, _, _ := newTestModel(t)

	next, _ := m.Update(appsync.QueryMsg{Snapshots: []querycache.Snapshot{
		{Key: m.api.AllTodos().Key, Status: querycache.StatusSucceeded, Value: testutil.SampleTodos(), Version: 1},
	}})
	m = next.(Model)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewDetail, m.currentView)
	shown, ok := m.detailView.Todo()
	require.True(t, ok)
	assert.Equal(t, 1, shown.ID)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, ViewList, m.currentView)
}

func TestModel_CommandPalette(t *testing.T) {
	m, srv, _ := newTestModel(t)

	next, _ := m.Update(appsync.QueryMsg{Snapshots: []querycache.Snapshot{
		{Key: m.api.AllTodos().Key, Status: querycache.StatusSucceeded, Value: testutil.SampleTodos(), Version: 1},
	}})
	m = next.(Model)

	m, _ = press(t, m, runes(":"))
	require.Equal(t, ViewCommand, m.currentView)

	next, _ = m.Update(command.CommandMsg("page 2"))
	m = next.(Model)
	assert.Equal(t, ViewList, m.currentView)
	assert.Len(t, m.todoList.Result().Items, 1)

	next, _ = m.Update(command.CommandMsg("launch rockets"))
	m = next.(Model)
	assert.True(t, m.flashErr)

	next, cmd := m.Update(command.CommandMsg("add"))
	m = next.(Model)
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, "invalid title: must not be empty", m.flash)
	assert.Zero(t, srv.Posts())
}

func TestModel_ApplySettings(t *testing.T) {
	m, _, _ := newTestModel(t)

	cfg := m.cfg
	cfg.Display.Theme = model.ThemeDark
	cfg.API.UserID = 9

	next, _ := m.Update(settingsview.SavedMsg{Config: cfg})
	m = next.(Model)
	assert.Equal(t, ViewList, m.currentView)
	assert.Equal(t, model.ThemeDark, theme.Current().Name)
	assert.Equal(t, "Settings saved.", m.flash)

	cfg.Display.PageSize = 50
	next, _ = m.Update(settingsview.SavedMsg{Config: cfg})
	m = next.(Model)
	assert.Contains(t, m.flash, "Restart")

	next, _ = m.Update(settingsview.SavedMsg{Config: cfg, Err: errors.New("disk full")})
	m = next.(Model)
	assert.True(t, m.flashErr)
	assert.Equal(t, 50, m.cfg.Display.PageSize)
}
