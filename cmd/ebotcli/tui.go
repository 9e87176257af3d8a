package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/TOTHTOT/ElectronBotCli/pkg/engine"
	"github.com/TOTHTOT/ElectronBotCli/pkg/poll"
	"github.com/TOTHTOT/ElectronBotCli/pkg/tui"
)

const statsRefresh = 500 * time.Millisecond

func runTUI(args []string, stdout io.Writer, stderr io.Writer) int {
	pf, cfg, err := parsePollFlags("tui", args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	// The alternate screen owns the terminal; keep logrus quiet.
	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lk, interval, err := openLink(cfg, pf.transport)
	if err != nil {
		reportOpenError(newLogger(stderr, cfg.Log.Level), err)
		return 1
	}
	defer lk.Close()

	hub := engine.NewHub()
	go hub.Run(ctx)

	state := poll.NewCommandState(!pf.disabled)
	poller := poll.New(lk,
		poll.WithInterval(interval),
		poll.WithLivenessEvery(cfg.Poll.LivenessEvery),
		poll.WithCommand(state.Heartbeat),
		poll.WithHub(hub),
		poll.WithLogger(log),
	)

	program := tea.NewProgram(
		tui.New(state, lk.String(), !pf.disabled),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)

	go func() {
		sub := hub.Subscribe()
		for tm := range sub {
			program.Send(tui.TelemetryMsg(tm))
		}
	}()

	go func() {
		ticker := time.NewTicker(statsRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				program.Send(tui.StatsMsg(poller.Stats()))
			}
		}
	}()

	pollDone := make(chan error, 1)
	go func() {
		err := poller.Run(ctx)
		pollDone <- err
		if err != nil {
			program.Send(tui.FatalMsg{Err: err})
		}
	}()

	final, err := program.Run()
	cancel()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintln(stderr, "tui:", err)
		return 1
	}

	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		fmt.Fprintln(stderr, "link failed:", m.Err())
		return 1
	}
	if err := <-pollDone; err != nil {
		fmt.Fprintln(stderr, "link failed:", err)
		return 1
	}
	fmt.Fprintln(stdout, "session closed")
	return 0
}
