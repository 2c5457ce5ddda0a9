package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zmask/internal/identity"
	"github.com/zarlcorp/zmask/internal/inbox"
	"github.com/zarlcorp/zmask/internal/session"
)

var accent = zstyle.ZburnAccent

// identityField represents a labeled field for display and selection.
type identityField struct {
	label string
	value string
}

// regenerateMsg asks for a new identity.
type regenerateMsg struct{}

// activateEmailMsg asks for a live mailbox.
type activateEmailMsg struct{}

// emailResultMsg carries the outcome of a mailbox activation.
type emailResultMsg struct {
	err error
}

// cardModel shows the current identity with its avatar.
type cardModel struct {
	fields []identityField
	art    string
	inbox  inbox.State
	toast  *session.Toast
	cursor int
	flash  string
}

func identityFields(id identity.Identity) []identityField {
	return []identityField{
		{"name", id.FullName()},
		{"username", id.Username},
		{"email", id.Email},
		{"phone", id.Phone},
		{"born", fmt.Sprintf("%s (%d y.o.)", id.DateOfBirth, id.Age)},
		{"address", id.Street + ", " + id.City},
		{"country", id.Country},
	}
}

func (m cardModel) setState(st session.State, art string) cardModel {
	m.fields = identityFields(st.Identity)
	m.art = art
	m.inbox = st.Inbox
	m.toast = st.Toast
	if m.cursor >= len(m.fields) {
		m.cursor = len(m.fields) - 1
	}
	return m
}

func (m cardModel) Update(msg tea.Msg) (cardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m, nil
}

func (m cardModel) handleKey(msg tea.KeyMsg) (cardModel, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyUp) {
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyDown) {
		if m.cursor < len(m.fields)-1 {
			m.cursor++
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		if len(m.fields) == 0 {
			return m, nil
		}
		if err := copyToClipboard(m.fields[m.cursor].value); err != nil {
			m.flash = "copy: " + err.Error()
			return m, clearFlashAfter()
		}
		m.flash = "copied!"
		return m, clearFlashAfter()
	}

	switch msg.String() {
	case "n":
		return m, func() tea.Msg { return regenerateMsg{} }

	case "e":
		return m, func() tea.Msg { return activateEmailMsg{} }

	case "i":
		return m, func() tea.Msg { return navigateMsg{view: viewInbox} }

	case "c":
		if err := copyToClipboard(m.allFieldsText()); err != nil {
			m.flash = "copy: " + err.Error()
			return m, clearFlashAfter()
		}
		m.flash = "copied all!"
		return m, clearFlashAfter()

	case "x":
		return m, func() tea.Msg { return burnStartMsg{} }
	}

	return m, nil
}

func (m cardModel) allFieldsText() string {
	var b strings.Builder
	for _, f := range m.fields {
		fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
	}
	return b.String()
}

func (m cardModel) View() string {
	var fields strings.Builder
	for i, f := range m.fields {
		label := zstyle.MutedText.Render(fmt.Sprintf("%-9s", f.label))
		if i == m.cursor {
			fields.WriteString(zstyle.ActiveBorder.Render(fmt.Sprintf("> %s %s", label, f.value)) + "\n")
		} else {
			fields.WriteString(fmt.Sprintf("  %s %s\n", label, f.value))
		}
	}

	body := fields.String()
	if m.art != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.art, "   ", body)
	}

	s := "\n" + indent(body, "  ") + "\n\n"
	s += "  " + m.emailStatus() + "\n"

	// always reserve a line for toast and flash to prevent layout shift
	switch {
	case m.toast != nil && m.toast.Err:
		s += "  " + zstyle.StatusErr.Render(m.toast.Text) + "\n"
	case m.toast != nil:
		s += "  " + zstyle.StatusOK.Render(m.toast.Text) + "\n"
	case m.flash != "":
		s += "  " + zstyle.StatusOK.Render(m.flash) + "\n"
	default:
		s += "\n"
	}

	return s
}

func (m cardModel) emailStatus() string {
	switch m.inbox.Status {
	case inbox.Creating:
		return zstyle.StatusWarn.Render("creating live email...")
	case inbox.Active:
		n := len(m.inbox.Messages)
		return zstyle.StatusOK.Render("live") + " " +
			zstyle.MutedText.Render(fmt.Sprintf("%s, %d %s", m.inbox.Account.Address, n, plural(n, "message")))
	case inbox.Failed:
		return zstyle.StatusErr.Render("email creation failed: " + errText(m.inbox.CreateErr))
	}
	return zstyle.MutedText.Render("local address only, press e for a live inbox")
}

func indent(s, pad string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
