package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zmask/internal/codes"
	"github.com/zarlcorp/zmask/internal/inbox"
)

// chrome is the number of lines around the viewport: app header, message
// header and footer.
const chrome = 12

// closeMessageMsg returns to the listing.
type closeMessageMsg struct{}

// messageModel shows one message in a scrollable viewport.
type messageModel struct {
	sel   *inbox.Selection
	code  string
	vp    viewport.Model
	flash string
}

func newMessageModel(width, height int) messageModel {
	return messageModel{vp: viewport.New(viewportSize(width, height))}
}

func viewportSize(width, height int) (int, int) {
	w, h := width-4, height-chrome
	if w < 20 {
		w = 76
	}
	if h < 3 {
		h = 12
	}
	return w, h
}

func (m messageModel) resize(width, height int) messageModel {
	m.vp.Width, m.vp.Height = viewportSize(width, height)
	return m
}

func (m messageModel) setSelection(sel *inbox.Selection) messageModel {
	if sel == nil {
		m.sel = nil
		return m
	}
	if m.sel != nil && m.sel.Message.ID == sel.Message.ID && m.sel.Degraded == sel.Degraded {
		return m
	}
	m.sel = sel
	m.code = ""
	if c, ok := codes.Best(sel.Message); ok {
		m.code = c.Value
	}
	m.vp.SetContent(sel.Message.Body())
	m.vp.GotoTop()
	return m
}

func (m messageModel) Update(msg tea.Msg) (messageModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, zstyle.KeyQuit) {
			return m, tea.Quit
		}
		if key.Matches(msg, zstyle.KeyBack) {
			return m, func() tea.Msg { return closeMessageMsg{} }
		}
		if msg.String() == "y" && m.code != "" {
			if err := copyToClipboard(m.code); err != nil {
				m.flash = "copy: " + err.Error()
				return m, clearFlashAfter()
			}
			m.flash = "code copied!"
			return m, clearFlashAfter()
		}
	}
	if _, ok := msg.(flashMsg); ok {
		m.flash = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m messageModel) View() string {
	if m.sel == nil {
		return "\n  " + zstyle.MutedText.Render("loading message...") + "\n"
	}

	msg := m.sel.Message
	from := msg.From.Address
	if msg.From.Name != "" {
		from = fmt.Sprintf("%s <%s>", msg.From.Name, msg.From.Address)
	}

	var b strings.Builder
	b.WriteString("\n  " + zstyle.Subtitle.Render(msg.Subject) + "\n")
	b.WriteString("  " + zstyle.MutedText.Render("from ") + from + "\n")
	b.WriteString("  " + zstyle.MutedText.Render("date ") + msg.CreatedAt.Local().Format("Mon Jan 2 2006 15:04") + "\n")
	if m.code != "" {
		b.WriteString("  " + zstyle.MutedText.Render("code ") + zstyle.Highlight.Render(m.code) + "\n")
	}
	if m.sel.Degraded {
		b.WriteString("  " + zstyle.StatusWarn.Render("full message unavailable, showing preview") + "\n")
	}
	b.WriteString("\n")
	b.WriteString(indent(m.vp.View(), "  ") + "\n\n")

	if m.flash != "" {
		b.WriteString("  " + zstyle.StatusOK.Render(m.flash) + "\n")
	} else {
		b.WriteString("\n")
	}
	return b.String()
}
