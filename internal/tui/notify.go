package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/zmask/internal/session"
)

// changedMsg reports that session or inbox state moved underneath the UI.
type changedMsg struct{}

// toastMsg fires when the current toast has expired.
type toastMsg struct{}

// flashMsg clears the flash after a timeout.
type flashMsg struct{}

// Notifier turns change callbacks from background goroutines into Bubble Tea
// messages. Signals coalesce: several changes before the UI wakes up produce
// one redraw.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier returns a ready Notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify never blocks.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return changedMsg{}
	}
}

func clearFlashAfter() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return flashMsg{}
	})
}

// toastDelay is how long after a toast appears the view redraws without it.
var toastDelay = session.ToastDuration

func clearToastAfter() tea.Cmd {
	return tea.Tick(toastDelay, func(time.Time) tea.Msg {
		return toastMsg{}
	})
}
