package detail

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoboard/internal/keys"
	"github.com/nhle/todoboard/internal/model"
)

func TestModel_RendersTodo(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 60, 20)
	assert.Contains(t, m.View(), "No todo selected")

	m.SetTodo(model.Todo{ID: 7, UserID: 3, Title: "water plants", Completed: true})
	out := m.View()
	assert.Contains(t, out, "water plants")
	assert.Contains(t, out, "Completed")
	assert.Contains(t, out, "#7")
}

func TestModel_SpeculativeTodoHasNoID(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 60, 20)
	m.SetTodo(model.Todo{ID: -1, UserID: 1, Title: "draft"})

	out := m.View()
	assert.Contains(t, out, "not assigned yet")
	assert.NotContains(t, out, "#-1")
	assert.NotContains(t, out, "Ref:")

	m.SetMutation("6f1c2a")
	assert.Contains(t, m.View(), "Ref:   6f1c2a")

	m.SetTodo(model.Todo{ID: 4, UserID: 1, Title: "confirmed"})
	assert.NotContains(t, m.View(), "6f1c2a")
}

func TestModel_EscSendsBack(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 60, 20)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}
