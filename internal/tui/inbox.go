package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zmask/internal/codes"
	"github.com/zarlcorp/zmask/internal/inbox"
	"github.com/zarlcorp/zmask/internal/session"
)

// refreshInboxMsg asks for an immediate listing.
type refreshInboxMsg struct{}

// toggleAutoRefreshMsg flips polling.
type toggleAutoRefreshMsg struct{}

// openMessageMsg asks to open a message.
type openMessageMsg struct {
	id string
}

// openResultMsg reports a finished open.
type openResultMsg struct {
	id  string
	err error
}

// inboxModel lists the messages of the live mailbox.
type inboxModel struct {
	state  inbox.State
	toast  *session.Toast
	cursor int
	flash  string
}

func (m inboxModel) setState(st inbox.State, toast *session.Toast) inboxModel {
	m.state = st
	m.toast = toast
	if m.cursor >= len(st.Messages) {
		m.cursor = max(len(st.Messages)-1, 0)
	}
	return m
}

func (m inboxModel) Update(msg tea.Msg) (inboxModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m, nil
}

func (m inboxModel) handleKey(msg tea.KeyMsg) (inboxModel, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyBack) {
		return m, func() tea.Msg { return navigateMsg{view: viewCard} }
	}

	switch msg.String() {
	case "r":
		return m, func() tea.Msg { return refreshInboxMsg{} }
	case "a":
		return m, func() tea.Msg { return toggleAutoRefreshMsg{} }
	}

	if len(m.state.Messages) == 0 {
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyUp) {
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyDown) {
		if m.cursor < len(m.state.Messages)-1 {
			m.cursor++
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		id := m.state.Messages[m.cursor].ID
		return m, func() tea.Msg { return openMessageMsg{id: id} }
	}

	return m, nil
}

func (m inboxModel) View() string {
	accentStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)

	s := "\n  " + zstyle.Subtitle.Render(m.state.Account.Address) + "  " + m.pollStatus() + "\n\n"

	if len(m.state.Messages) == 0 {
		s += "  " + zstyle.MutedText.Render("no messages yet") + "\n"
	}

	for i, msg := range m.state.Messages {
		from := msg.From.Name
		if from == "" {
			from = msg.From.Address
		}
		line := fmt.Sprintf("%-24s %-36s %s",
			truncate(from, 24),
			truncate(msg.Subject, 36),
			zstyle.MutedText.Render(msg.CreatedAt.Local().Format("Jan 2 15:04")))

		if c, ok := codes.Best(msg); ok {
			line += "  " + zstyle.Highlight.Render(c.Value)
		}

		if !msg.Seen {
			line = zstyle.Highlight.Render("•") + " " + line
		} else {
			line = "  " + line
		}

		if i == m.cursor {
			s += "  " + accentStyle.Render("▸") + " " + line + "\n"
		} else {
			s += "    " + line + "\n"
		}
	}

	s += "\n"

	// always reserve a line for errors and flash to prevent layout shift
	switch {
	case m.toast != nil && m.toast.Err:
		s += "  " + zstyle.StatusErr.Render(m.toast.Text) + "\n"
	case m.toast != nil:
		s += "  " + zstyle.StatusOK.Render(m.toast.Text) + "\n"
	case m.flash != "":
		s += "  " + zstyle.StatusWarn.Render(m.flash) + "\n"
	case m.state.ListErr != nil:
		s += "  " + zstyle.StatusErr.Render("refresh failed: "+m.state.ListErr.Error()) + "\n"
	default:
		s += "\n"
	}

	return s
}

func (m inboxModel) pollStatus() string {
	var s string
	if m.state.AutoRefresh {
		s = zstyle.StatusOK.Render("auto-refresh on")
	} else {
		s = zstyle.MutedText.Render("auto-refresh off")
	}
	if m.state.Loading {
		s += " " + zstyle.MutedText.Render("(refreshing)")
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
