// Package logger records decoded telemetry as JSON Lines for offline
// inspection.
package logger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/TOTHTOT/ElectronBotCli/pkg/protocol"
)

type JSONLWriter struct {
	enc *json.Encoder
}

type jsonRecord struct {
	TS         string    `json:"ts"`
	Status     string    `json:"status"`
	Angles     []float32 `json:"angles"`
	PayloadHex string    `json:"payload_hex,omitempty"`
}

func NewJSONLWriter(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

// Consume drains the telemetry channel until it closes or the context is
// cancelled, writing one record per packet.
func (j *JSONLWriter) Consume(ctx context.Context, in <-chan protocol.Telemetry) {
	for {
		select {
		case <-ctx.Done():
			return
		case tm, ok := <-in:
			if !ok {
				return
			}
			_ = j.enc.Encode(record(tm))
		}
	}
}

func record(tm protocol.Telemetry) jsonRecord {
	return jsonRecord{
		TS:         tm.Timestamp.UTC().Format(time.RFC3339Nano),
		Status:     fmt.Sprintf("0x%02x", tm.Status),
		Angles:     tm.Angles[:],
		PayloadHex: hex.EncodeToString(tm.Payload),
	}
}
