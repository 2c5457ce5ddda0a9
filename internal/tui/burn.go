package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zmask/internal/burn"
)

type burnPhase int

const (
	burnConfirm burnPhase = iota
	burnRunning
	burnDone
)

// returnAfterBurnDelay is how long the result stays up before the card returns.
const returnAfterBurnDelay = 3 * time.Second

type (
	burnStartMsg   struct{}
	burnConfirmMsg struct{}
	burnResultMsg  struct{ result burn.Result }
	burnTimeoutMsg struct{}
)

// burnModel asks before tearing down the identity and then reports each
// step of the cascade.
type burnModel struct {
	name   string
	plan   []string
	phase  burnPhase
	result burn.Result
}

func newBurnModel(name string, plan []string) burnModel {
	return burnModel{name: name, plan: plan}
}

func (m burnModel) Update(msg tea.Msg) (burnModel, tea.Cmd) {
	switch msg := msg.(type) {
	case burnResultMsg:
		m.result = msg.result
		m.phase = burnDone
		return m, nil

	case tea.KeyMsg:
		switch m.phase {
		case burnConfirm:
			if key.Matches(msg, zstyle.KeyQuit) {
				return m, tea.Quit
			}
			if msg.String() == "y" {
				m.phase = burnRunning
				return m, func() tea.Msg { return burnConfirmMsg{} }
			}
			return m, func() tea.Msg { return navigateMsg{view: viewCard} }
		case burnDone:
			return m, func() tea.Msg { return navigateMsg{view: viewCard} }
		}
	}
	return m, nil
}

func (m burnModel) View() string {
	var b strings.Builder

	switch m.phase {
	case burnConfirm:
		b.WriteString("\n  " + zstyle.Title.Render("burn "+m.name+"?") + "\n\n")
		bullet := lipgloss.NewStyle().Foreground(accent).Render("▸")
		for _, step := range m.plan {
			b.WriteString("  " + bullet + " " + step + "\n")
		}
		b.WriteString("\n  " + zstyle.StatusWarn.Render("nothing comes back after this") + "\n")
		b.WriteString("  " + zstyle.MutedText.Render("y burns it, any other key keeps it") + "\n")

	case burnRunning:
		b.WriteString("\n  " + zstyle.MutedText.Render("burning "+m.name+"...") + "\n")
		for _, step := range m.plan {
			b.WriteString("    " + zstyle.MutedText.Render(step) + "\n")
		}

	case burnDone:
		failed := lo.CountBy(m.result.Steps, func(s burn.StepStatus) bool { return s.Err != nil })
		head := "burned " + m.result.Name
		if failed > 0 {
			head += fmt.Sprintf(", %d %s failed", failed, plural(failed, "step"))
			b.WriteString("\n  " + zstyle.StatusWarn.Render(head) + "\n\n")
		} else {
			b.WriteString("\n  " + zstyle.StatusOK.Render(head) + "\n\n")
		}
		for _, s := range m.result.Steps {
			if s.Err != nil {
				b.WriteString("  " + zstyle.StatusErr.Render("✗ "+s.Description+": "+s.Err.Error()) + "\n")
				continue
			}
			b.WriteString("  " + zstyle.StatusOK.Render("✓") + " " + s.Description + "\n")
		}
		b.WriteString("\n  " + zstyle.MutedText.Render("a fresh identity is ready, press any key") + "\n")
	}

	return b.String()
}

func returnAfterBurn() tea.Cmd {
	return tea.Tick(returnAfterBurnDelay, func(time.Time) tea.Msg {
		return burnTimeoutMsg{}
	})
}
