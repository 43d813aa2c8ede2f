package ui

import (
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestSyncState_Label(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC)

	tests := []struct {
		name  string
		state SyncState
		want  string
	}{
		{"never refreshed", SyncState{}, "live"},
		{"refreshed", SyncState{LastRefresh: at}, "synced 09:30:15"},
		{"pending wins", SyncState{Pending: 2, LastRefresh: at}, "saving (2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.Label())
		})
	}
}

func TestLayout_HeaderFillsWidth(t *testing.T) {
	l := NewLayout(60, 20)
	out := l.RenderHeader("My Todos", SyncState{Pending: 1})

	assert.Contains(t, out, "My Todos")
	assert.Contains(t, out, "saving (1)")
	assert.Equal(t, 60, lipgloss.Width(out))
	assert.Equal(t, 18, l.ContentHeight())
}

func TestLayout_StatusBarNotice(t *testing.T) {
	l := NewLayout(80, 20)

	assert.Contains(t, l.RenderStatusBar(Notice{}, "q quit"), "q quit")

	out := l.RenderStatusBar(Notice{Text: "Todo added successfully!"}, "3 todos")
	assert.Contains(t, out, "Todo added successfully! | 3 todos")

	out = l.RenderStatusBar(Notice{Text: "Failed to add todo.", Err: true}, "3 todos")
	assert.Contains(t, out, "Failed to add todo.")
	assert.NotContains(t, out, "3 todos")
}
