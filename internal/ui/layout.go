package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoboard/internal/theme"
)

// Layout splits the terminal into header, content and status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with one-line header and status bar.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left between header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// SyncState is what the header reports about the query cache.
type SyncState struct {
	// Pending counts mutations the server has not answered yet.
	Pending int
	// LastRefresh is zero until the poller refetched once.
	LastRefresh time.Time
}

// Label describes the state in a few words.
func (s SyncState) Label() string {
	switch {
	case s.Pending > 0:
		return fmt.Sprintf("saving (%d)", s.Pending)
	case !s.LastRefresh.IsZero():
		return "synced " + s.LastRefresh.Format("15:04:05")
	default:
		return "live"
	}
}

// Notice is a one-line message shown in the status bar.
type Notice struct {
	Text string
	Err  bool
}

// RenderHeader draws title on the left and the sync state on the right.
func (l Layout) RenderHeader(title string, sync SyncState) string {
	status := sync.Label()
	if sync.Pending > 0 {
		status = "● " + status
	}
	return l.spread(theme.HeaderStyle, theme.HeaderStyle.Render(title), theme.HeaderStyle.Render(status))
}

// RenderStatusBar draws the notice, if any, followed by hints.
func (l Layout) RenderStatusBar(notice Notice, hints string) string {
	left := hints
	switch {
	case notice.Err:
		left = theme.ErrorStyle.Render(notice.Text)
	case notice.Text != "":
		left = notice.Text + " | " + hints
	}
	return l.spread(theme.StatusBarStyle, theme.StatusBarStyle.Render(left), "")
}

// spread fills the space between left and right with the background of st.
func (l Layout) spread(st lipgloss.Style, left, right string) string {
	gap := max(l.Width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(st.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame stacks header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
