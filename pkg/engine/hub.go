// Package engine fans decoded telemetry out to the consumers that want it:
// the JSONL logger, the WebSocket bridge and the TUI.
package engine

import (
	"context"
	"sync"

	"github.com/TOTHTOT/ElectronBotCli/pkg/protocol"
)

// Hub is a non-blocking publish/subscribe fan-out for telemetry packets. A
// slow subscriber drops packets instead of stalling the poll loop.
type Hub struct {
	mu        sync.Mutex
	subs      map[chan protocol.Telemetry]struct{}
	clientBuf int
	closed    bool
}

type Option func(*Hub)

// WithClientBuffer sets the per-subscriber channel depth.
func WithClientBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.clientBuf = size
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:      make(map[chan protocol.Telemetry]struct{}),
		clientBuf: 64,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run blocks until the context is cancelled, then closes every subscriber
// channel so consumers drain and exit.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = make(map[chan protocol.Telemetry]struct{})
}

// Subscribe registers a new consumer channel. After shutdown it returns an
// already-closed channel.
func (h *Hub) Subscribe() chan protocol.Telemetry {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan protocol.Telemetry, h.clientBuf)
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a consumer and closes its channel.
func (h *Hub) Unsubscribe(ch chan protocol.Telemetry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Publish delivers a packet to every subscriber without blocking.
func (h *Hub) Publish(tm protocol.Telemetry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- tm:
		default:
		}
	}
}
