// Package tui implements the root Bubble Tea model for zmask.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zmask/internal/burn"
	"github.com/zarlcorp/zmask/internal/inbox"
	"github.com/zarlcorp/zmask/internal/session"
)

type viewID int

const (
	viewCard viewID = iota
	viewInbox
	viewMessage
	viewBurn
)

// Session is the application state the TUI drives.
type Session interface {
	Snapshot() session.State
	Regenerate()
	ActivateEmail(ctx context.Context) error
	BurnRequest() burn.Request
	Burn(ctx context.Context) burn.Result
}

// Inbox is the part of the mailbox lifecycle bound to the inbox views.
type Inbox interface {
	Refresh(ctx context.Context) error
	Open(ctx context.Context, id string) error
	Back()
	Mount(ctx context.Context)
	Unmount()
	SetAutoRefresh(ctx context.Context, on bool)
}

// navigateMsg tells the root model to switch views.
type navigateMsg struct {
	view viewID
}

// Model is the root TUI model.
type Model struct {
	ctx     context.Context
	version string
	sess    Session
	inbox   Inbox
	changes *Notifier

	// last snapshot, refreshed after every state change
	state session.State
	art   avatarArt

	active  viewID
	card    cardModel
	list    inboxModel
	message messageModel
	burn    burnModel

	// terminal dimensions
	width  int
	height int
}

// New creates the root TUI model. changes must be the notifier the inbox
// reports to; it wakes the model when background refreshes land.
func New(ctx context.Context, version string, sess Session, in Inbox, changes *Notifier) Model {
	m := Model{
		ctx:     ctx,
		version: version,
		sess:    sess,
		inbox:   in,
		changes: changes,
		active:  viewCard,
	}
	return m.refreshState()
}

func (m Model) Init() tea.Cmd {
	return m.changes.wait()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.message = m.message.resize(msg.Width, msg.Height)
		return m, nil

	case changedMsg:
		return m.refreshState(), m.changes.wait()

	case toastMsg:
		return m.refreshState(), nil

	case navigateMsg:
		return m.navigate(msg.view)

	case regenerateMsg:
		m.sess.Regenerate()
		m.card.cursor = 0
		return m.refreshState(), nil

	case activateEmailMsg:
		return m.activateEmail()

	case emailResultMsg:
		m = m.refreshState()
		var cmds []tea.Cmd
		if m.state.Toast != nil {
			cmds = append(cmds, clearToastAfter())
		}
		// a new live mailbox opens its inbox, which lists and starts polling
		if msg.err == nil && m.state.Inbox.Status == inbox.Active && m.active == viewCard {
			next, cmd := m.navigate(viewInbox)
			return next, tea.Batch(append(cmds, cmd)...)
		}
		return m, tea.Batch(cmds...)

	case refreshInboxMsg:
		ctx, in := m.ctx, m.inbox
		return m, func() tea.Msg {
			_ = in.Refresh(ctx)
			return nil
		}

	case toggleAutoRefreshMsg:
		ctx, in, on := m.ctx, m.inbox, !m.state.Inbox.AutoRefresh
		return m, func() tea.Msg {
			in.SetAutoRefresh(ctx, on)
			return nil
		}

	case openMessageMsg:
		return m.openMessage(msg.id)

	case openResultMsg:
		if msg.err != nil && m.active == viewMessage {
			m.active = viewInbox
			m.list.flash = "open: " + msg.err.Error()
			return m.refreshState(), clearFlashAfter()
		}
		return m.refreshState(), nil

	case closeMessageMsg:
		m.inbox.Back()
		m.active = viewInbox
		return m.refreshState(), nil

	case burnStartMsg:
		req := m.sess.BurnRequest()
		m.burn = newBurnModel(req.Identity.FullName(), burn.Plan(req))
		m.active = viewBurn
		return m, nil

	case burnConfirmMsg:
		ctx, sess := m.ctx, m.sess
		return m, func() tea.Msg {
			return burnResultMsg{result: sess.Burn(ctx)}
		}

	case burnResultMsg:
		m.burn, _ = m.burn.Update(msg)
		m.card.cursor = 0
		return m.refreshState(), returnAfterBurn()

	case burnTimeoutMsg:
		if m.active != viewBurn {
			return m, nil
		}
		return m.navigate(viewCard)
	}

	return m.updateActive(msg)
}

func (m Model) View() string {
	var content string
	switch m.active {
	case viewCard:
		content = m.card.View()
	case viewInbox:
		content = m.list.View()
	case viewMessage:
		content = m.message.View()
	case viewBurn:
		content = m.burn.View()
	}

	header := zstyle.RenderHeader("zmask", viewTitle(m.active), accent)
	sep := zstyle.RenderSeparator(m.width)
	footer := zstyle.RenderFooter(helpFor(m.active))

	return "\n" + header + "\n" + sep + "\n" + content + "\n" + footer + "\n"
}

// viewTitle returns the display title for each view.
func viewTitle(id viewID) string {
	switch id {
	case viewCard:
		return "Identity"
	case viewInbox:
		return "Inbox"
	case viewMessage:
		return "Message"
	case viewBurn:
		return "Burn"
	}
	return ""
}

// helpFor returns keybinding pairs for each view's footer.
func helpFor(id viewID) []zstyle.HelpPair {
	switch id {
	case viewCard:
		return []zstyle.HelpPair{
			{Key: "n", Desc: "new"},
			{Key: "e", Desc: "live email"},
			{Key: "i", Desc: "inbox"},
			{Key: "enter", Desc: "copy field"},
			{Key: "c", Desc: "copy all"},
			{Key: "x", Desc: "burn"},
			{Key: "q", Desc: "quit"},
		}
	case viewInbox:
		return []zstyle.HelpPair{
			{Key: "j/k", Desc: "navigate"},
			{Key: "enter", Desc: "open"},
			{Key: "r", Desc: "refresh"},
			{Key: "a", Desc: "auto-refresh"},
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewMessage:
		return []zstyle.HelpPair{
			{Key: "j/k", Desc: "scroll"},
			{Key: "y", Desc: "copy code"},
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewBurn:
		return []zstyle.HelpPair{
			{Key: "y", Desc: "confirm"},
			{Key: "n", Desc: "cancel"},
			{Key: "q", Desc: "quit"},
		}
	}
	return nil
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.active {
	case viewCard:
		m.card, cmd = m.card.Update(msg)
	case viewInbox:
		m.list, cmd = m.list.Update(msg)
	case viewMessage:
		m.message, cmd = m.message.Update(msg)
	case viewBurn:
		m.burn, cmd = m.burn.Update(msg)
	}

	return m, cmd
}

func (m Model) navigate(view viewID) (tea.Model, tea.Cmd) {
	switch view {
	case viewCard:
		if m.active == viewInbox || m.active == viewMessage {
			m.inbox.Unmount()
		}
		m.active = viewCard
		return m.refreshState(), tea.ClearScreen

	case viewInbox:
		if m.state.Inbox.Status != inbox.Active {
			m.card.flash = "no live email yet, press e"
			return m, clearFlashAfter()
		}
		m.list.cursor = 0
		m.active = viewInbox
		ctx, in := m.ctx, m.inbox
		return m.refreshState(), tea.Batch(tea.ClearScreen, func() tea.Msg {
			in.Mount(ctx)
			return nil
		})
	}

	return m, nil
}

func (m Model) activateEmail() (tea.Model, tea.Cmd) {
	switch m.state.Inbox.Status {
	case inbox.Creating, inbox.Active:
		return m, nil
	}

	ctx, sess := m.ctx, m.sess
	return m, func() tea.Msg {
		return emailResultMsg{err: sess.ActivateEmail(ctx)}
	}
}

func (m Model) openMessage(id string) (tea.Model, tea.Cmd) {
	m.message = newMessageModel(m.width, m.height)
	m.active = viewMessage

	ctx, in := m.ctx, m.inbox
	return m.refreshState(), func() tea.Msg {
		return openResultMsg{id: id, err: in.Open(ctx, id)}
	}
}

// refreshState takes a new snapshot and hands it to every view.
func (m Model) refreshState() Model {
	m.state = m.sess.Snapshot()
	m.art = m.art.update(m.state.Avatar)

	m.card = m.card.setState(m.state, m.art.text)
	m.list = m.list.setState(m.state.Inbox, m.state.Toast)
	m.message = m.message.setSelection(m.state.Inbox.Selection)
	return m
}
