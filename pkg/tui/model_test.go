package tui_test

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/TOTHTOT/ElectronBotCli/pkg/poll"
	"github.com/TOTHTOT/ElectronBotCli/pkg/protocol"
	"github.com/TOTHTOT/ElectronBotCli/pkg/tui"
)

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func step(t *testing.T, m tea.Model, msg tea.Msg) tea.Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next
}

func TestSelectionWraps(t *testing.T) {
	state := poll.NewCommandState(true)
	var m tea.Model = tui.New(state, "mock", true)

	m = step(t, m, key("up"))
	if got := m.(tui.Model).Selected(); got != protocol.ServoCount-1 {
		t.Fatalf("up from 0 should wrap to %d, got %d", protocol.ServoCount-1, got)
	}
	m = step(t, m, key("down"))
	if got := m.(tui.Model).Selected(); got != 0 {
		t.Fatalf("down should wrap back to 0, got %d", got)
	}
}

func TestAdjustClampsAndPropagates(t *testing.T) {
	state := poll.NewCommandState(true)
	var m tea.Model = tui.New(state, "mock", true)

	// Head range is ±15; 4 coarse steps would hit 20 without clamping.
	for i := 0; i < 4; i++ {
		m = step(t, m, key("]"))
	}
	if got := m.(tui.Model).Target(0); got != 15 {
		t.Fatalf("head target: got %v want 15", got)
	}
	if got := state.Snapshot().Angles[0]; got != 15 {
		t.Fatalf("command state angle: got %v want 15", got)
	}

	m = step(t, m, key("left"))
	if got := state.Snapshot().Angles[0]; got != 14 {
		t.Fatalf("after left: got %v want 14", got)
	}

	m = step(t, m, key("0"))
	if got := state.Snapshot().Angles[0]; got != 0 {
		t.Fatalf("after center: got %v want 0", got)
	}
}

func TestEnableToggle(t *testing.T) {
	state := poll.NewCommandState(true)
	var m tea.Model = tui.New(state, "mock", true)

	m = step(t, m, key(" "))
	if m.(tui.Model).Enabled() {
		t.Fatalf("space should disable")
	}
	if state.Snapshot().Enable != protocol.DisableValue {
		t.Fatalf("disable not pushed to command state")
	}

	m = step(t, m, key(" "))
	if !m.(tui.Model).Enabled() {
		t.Fatalf("space should re-enable")
	}
}

func TestQuitKeys(t *testing.T) {
	state := poll.NewCommandState(true)
	m := tui.New(state, "mock", true)

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatalf("q should quit")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Fatalf("expected QuitMsg, got %T", msg)
	}
}

func TestTelemetryUpdatesView(t *testing.T) {
	state := poll.NewCommandState(true)
	var m tea.Model = tui.New(state, "mock", true)

	m = step(t, m, tui.TelemetryMsg(protocol.Telemetry{
		Angles:    [6]float32{1, 2, 3, 4, 5, 6},
		Timestamp: time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC),
	}))
	m = step(t, m, tui.StatsMsg(poll.Stats{Sent: 10, Received: 7}))

	view := m.(tui.Model).View()
	if !strings.Contains(view, "rx 7") {
		t.Fatalf("view missing rx counter:\n%s", view)
	}
	if !strings.Contains(view, "head") {
		t.Fatalf("view missing joint names:\n%s", view)
	}
	if strings.Contains(view, "waiting for telemetry") {
		t.Fatalf("view should show last telemetry time:\n%s", view)
	}
}

func TestFatalQuits(t *testing.T) {
	state := poll.NewCommandState(true)
	m := tui.New(state, "mock", true)

	next, cmd := m.Update(tui.FatalMsg{Err: context.DeadlineExceeded})
	if cmd == nil {
		t.Fatalf("fatal must quit")
	}
	if next.(tui.Model).Err() == nil {
		t.Fatalf("fatal error must be retained")
	}
}
