package ws_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TOTHTOT/ElectronBotCli/pkg/bridge/ws"
	"github.com/TOTHTOT/ElectronBotCli/pkg/engine"
	"github.com/TOTHTOT/ElectronBotCli/pkg/protocol"
)

func TestBridgeStreamsTelemetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := engine.NewHub()
	srv := ws.NewServer(hub, nil)

	ts := httptest.NewServer(srv.Handler(ctx))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/telemetry"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the handler a moment to subscribe before publishing.
	deadline := time.Now().Add(time.Second)
	var got ws.Frame
	for {
		hub.Publish(protocol.Telemetry{
			Status:    0x02,
			Angles:    [6]float32{1, 2, 3, 4, 5, 6},
			Timestamp: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
			Payload:   []byte{0xAB},
		})

		_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		if err := conn.ReadJSON(&got); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no frame received")
		}
	}

	if got.Status != 0x02 {
		t.Fatalf("status: got %d", got.Status)
	}
	if len(got.Angles) != 6 || got.Angles[2] != 3 {
		t.Fatalf("angles: got %v", got.Angles)
	}
	if got.PayloadHex != "ab" {
		t.Fatalf("payload hex: got %q", got.PayloadHex)
	}
	if got.TS != "2026-08-25T12:00:00Z" {
		t.Fatalf("ts: got %q", got.TS)
	}
}

func TestBridgeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	hub := engine.NewHub()
	srv := ws.NewServer(hub, nil)

	ts := httptest.NewServer(srv.Handler(ctx))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/telemetry"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	cancel()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return // connection torn down as expected
		}
	}
}
