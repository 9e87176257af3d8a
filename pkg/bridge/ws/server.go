// Package ws streams decoded telemetry to WebSocket clients, one JSON frame
// per packet.
package ws

import (
	"context"
	"encoding/hex"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/TOTHTOT/ElectronBotCli/pkg/engine"
	"github.com/TOTHTOT/ElectronBotCli/pkg/protocol"
)

const writeTimeout = 5 * time.Second

// Frame is the JSON message sent to each client.
type Frame struct {
	TS         string    `json:"ts"`
	Status     uint8     `json:"status"`
	Angles     []float32 `json:"angles"`
	PayloadHex string    `json:"payload_hex,omitempty"`
}

type Server struct {
	hub      *engine.Hub
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewServer(hub *engine.Hub, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			// The bridge is a localhost diagnostic surface.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start serves /telemetry on addr until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/telemetry", func(w http.ResponseWriter, r *http.Request) {
		s.handle(ctx, w, r)
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.WithField("addr", ln.Addr().String()).Info("telemetry bridge listening")
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Handler exposes the upgrade endpoint for tests and embedding.
func (s *Server) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handle(ctx, w, r)
	})
}

func (s *Server) handle(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case tm, ok := <-sub:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(frame(tm)); err != nil {
				return
			}
		}
	}
}

func frame(tm protocol.Telemetry) Frame {
	return Frame{
		TS:         tm.Timestamp.UTC().Format(time.RFC3339Nano),
		Status:     tm.Status,
		Angles:     tm.Angles[:],
		PayloadHex: hex.EncodeToString(tm.Payload),
	}
}
