// Package poll drives the heartbeat/telemetry exchange with the robot.
package poll

import (
	"context"
	"encoding/hex"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TOTHTOT/ElectronBotCli/pkg/engine"
	"github.com/TOTHTOT/ElectronBotCli/pkg/link"
	"github.com/TOTHTOT/ElectronBotCli/pkg/protocol"
)

// Default pacing per transport; the firmware runs its own control loop with a
// fixed delay, so the host backs off between iterations.
const (
	DefaultSerialInterval = 10 * time.Millisecond
	DefaultUSBInterval    = 20 * time.Millisecond
	DefaultLivenessEvery  = 50
)

// CommandSource produces the heartbeat packet for each iteration.
type CommandSource func() []byte

// Stats is a snapshot of loop counters.
type Stats struct {
	Sent         uint64
	Received     uint64
	DecodeErrors uint64
}

// Poller owns the write/read/decode cycle. It does not own the Link: the
// caller opens it and closes it exactly once, whatever way the loop exits.
type Poller struct {
	link          link.Link
	interval      time.Duration
	livenessEvery uint64
	command       CommandSource
	hub           *engine.Hub
	log           *logrus.Logger

	sent         atomic.Uint64
	received     atomic.Uint64
	decodeErrors atomic.Uint64
}

type Option func(*Poller)

// WithInterval overrides the sleep between iterations.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLivenessEvery sets how many successful decodes separate liveness
// notices.
func WithLivenessEvery(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.livenessEvery = uint64(n)
		}
	}
}

// WithCommand replaces the default enabled-heartbeat source.
func WithCommand(src CommandSource) Option {
	return func(p *Poller) {
		if src != nil {
			p.command = src
		}
	}
}

// WithHub publishes every decoded packet to the hub.
func WithHub(h *engine.Hub) Option {
	return func(p *Poller) {
		p.hub = h
	}
}

// WithLogger sets the status logger.
func WithLogger(log *logrus.Logger) Option {
	return func(p *Poller) {
		if log != nil {
			p.log = log
		}
	}
}

func New(l link.Link, opts ...Option) *Poller {
	p := &Poller{
		link:          l,
		interval:      DefaultSerialInterval,
		livenessEvery: DefaultLivenessEvery,
		command:       func() []byte { return protocol.EncodeCommand(true) },
		log:           logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// outcome classifies one loop iteration. Control flow is by value, not by
// panic or non-local transfer.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeNoData
	outcomeDecodeError
	outcomeFatal
)

// Run loops until the context is cancelled (returns nil) or the transport
// fails (returns the fatal error). Decode failures and empty reads only skip
// the iteration.
func (p *Poller) Run(ctx context.Context) error {
	timer := time.NewTimer(p.interval)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		res, err := p.step()
		if res == outcomeFatal {
			return err
		}

		timer.Reset(p.interval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

func (p *Poller) step() (outcome, error) {
	if err := p.link.Write(p.command()); err != nil {
		return outcomeFatal, err
	}
	p.sent.Add(1)

	raw, err := p.link.Read(protocol.TelemetryPacketLen)
	switch {
	case errors.Is(err, link.ErrNoData):
		return outcomeNoData, nil
	case err != nil:
		return outcomeFatal, err
	}

	tm, err := protocol.DecodeTelemetry(raw)
	if err != nil {
		p.decodeErrors.Add(1)
		p.log.WithField("raw", hex.EncodeToString(raw)).Warnf("telemetry decode failed: %v", err)
		return outcomeDecodeError, nil
	}

	count := p.received.Add(1)
	p.log.WithFields(logrus.Fields{
		"angles": tm.Angles,
		"count":  count,
	}).Debug("telemetry")

	if p.hub != nil {
		p.hub.Publish(tm)
	}

	if count%p.livenessEvery == 0 {
		p.log.WithField("count", count).Info("link stable, telemetry flowing")
	}
	return outcomeOK, nil
}

// Stats returns a snapshot of the loop counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Sent:         p.sent.Load(),
		Received:     p.received.Load(),
		DecodeErrors: p.decodeErrors.Load(),
	}
}
