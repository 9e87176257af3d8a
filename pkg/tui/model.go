// Package tui is the interactive servo console: select a joint, nudge its
// target angle, watch the feedback angles stream back.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/TOTHTOT/ElectronBotCli/pkg/poll"
	"github.com/TOTHTOT/ElectronBotCli/pkg/protocol"
)

const (
	fineStep   = 1
	coarseStep = 5
)

// TelemetryMsg delivers a decoded packet into the Update loop.
type TelemetryMsg protocol.Telemetry

// StatsMsg refreshes the loop counters shown in the footer.
type StatsMsg poll.Stats

// FatalMsg reports a fatal transport error; the TUI shows it and quits.
type FatalMsg struct{ Err error }

type Model struct {
	state    *poll.CommandState
	linkName string

	selected int
	enabled  bool
	targets  [protocol.ServoCount]float32
	feedback [protocol.ServoCount]float32
	lastSeen time.Time
	stats    poll.Stats
	fatal    error
}

func New(state *poll.CommandState, linkName string, enabled bool) Model {
	m := Model{
		state:    state,
		linkName: linkName,
		enabled:  enabled,
	}
	snap := state.Snapshot()
	m.targets = snap.Angles
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKey(msg)
	case TelemetryMsg:
		m.feedback = msg.Angles
		m.lastSeen = msg.Timestamp
		return m, nil
	case StatsMsg:
		m.stats = poll.Stats(msg)
		return m, nil
	case FatalMsg:
		m.fatal = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.selected = (m.selected + protocol.ServoCount - 1) % protocol.ServoCount
	case "down", "j":
		m.selected = (m.selected + 1) % protocol.ServoCount
	case "left", "h":
		m.adjust(-fineStep)
	case "right", "l":
		m.adjust(fineStep)
	case "[":
		m.adjust(-coarseStep)
	case "]":
		m.adjust(coarseStep)
	case "0":
		m.targets[m.selected] = 0
		m.state.SetAngle(m.selected, 0)
	case " ":
		m.enabled = !m.enabled
		m.state.SetEnabled(m.enabled)
	}
	return m, nil
}

func (m *Model) adjust(delta float32) {
	next := protocol.ClampAngle(m.selected, m.targets[m.selected]+delta)
	m.targets[m.selected] = next
	m.state.SetAngle(m.selected, next)
}

// Selected returns the currently highlighted joint index.
func (m Model) Selected() int { return m.selected }

// Enabled reports the current enable flag.
func (m Model) Enabled() bool { return m.enabled }

// Target returns the target angle of a joint.
func (m Model) Target(i int) float32 { return m.targets[i] }

// Err returns the fatal error that ended the session, if any.
func (m Model) Err() error { return m.fatal }

func (m Model) View() string {
	var b strings.Builder

	state := "disabled"
	if m.enabled {
		state = "enabled"
	}
	fmt.Fprintf(&b, "ElectronBot  %s  [%s]  rx %d  tx %d\n\n", m.linkName, state, m.stats.Received, m.stats.Sent)
	fmt.Fprintf(&b, "    %-16s %9s %9s   %s\n", "joint", "target", "feedback", "range")

	for i := 0; i < protocol.ServoCount; i++ {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		min, max := protocol.ServoRange(i)
		fmt.Fprintf(&b, "  %s%-16s %8.1f° %8.1f°   %.0f° ~ %.0f°\n",
			cursor, protocol.ServoName(i), m.targets[i], m.feedback[i], min, max)
	}

	b.WriteString("\n")
	if m.fatal != nil {
		fmt.Fprintf(&b, "transport error: %v\n", m.fatal)
	} else if !m.lastSeen.IsZero() {
		fmt.Fprintf(&b, "last telemetry %s\n", m.lastSeen.Format("15:04:05.000"))
	} else {
		b.WriteString("waiting for telemetry...\n")
	}
	b.WriteString("up/down select · left/right ±1° · [ ] ±5° · 0 center · space enable · q quit\n")
	return b.String()
}
