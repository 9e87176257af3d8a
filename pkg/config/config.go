// Package config loads the ebotcli.toml configuration. Every field has a
// default matching the firmware constants, so the file is optional and flags
// can override individual values.
package config

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const DefaultConfigPath = "ebotcli.toml"

type Config struct {
	Serial SerialConfig `toml:"serial"`
	USB    USBConfig    `toml:"usb"`
	Poll   PollConfig   `toml:"poll"`
	Bridge BridgeConfig `toml:"bridge"`
	Log    LogConfig    `toml:"log"`
}

type SerialConfig struct {
	Port          string `toml:"port"`
	Baud          int    `toml:"baud"`
	ReadTimeoutMS int    `toml:"read_timeout_ms"`
	SettleMS      int    `toml:"settle_ms"`
}

type USBConfig struct {
	VID        uint16 `toml:"vid"`
	PID        uint16 `toml:"pid"`
	EPOut      byte   `toml:"ep_out"`
	EPIn       byte   `toml:"ep_in"`
	TimeoutMS  int    `toml:"timeout_ms"`
	Interfaces []int  `toml:"interfaces"`
	SettleMS   int    `toml:"settle_ms"`
}

type PollConfig struct {
	// IntervalMS of 0 selects the per-transport default (10ms serial, 20ms
	// usb).
	IntervalMS    int `toml:"interval_ms"`
	LivenessEvery int `toml:"liveness_every"`

	// EnableValue/DisableValue are written at offset 0 of the command
	// packet. The firmware sources are ambiguous about polarity; change
	// these if your build expects 0 for enabled.
	EnableValue  uint8 `toml:"enable_value"`
	DisableValue uint8 `toml:"disable_value"`
}

type BridgeConfig struct {
	// WSAddr enables the WebSocket telemetry bridge when non-empty, e.g.
	// "127.0.0.1:8765".
	WSAddr string `toml:"ws_addr"`
}

type LogConfig struct {
	// Path of the JSONL telemetry log; empty disables it.
	Path string `toml:"path"`

	// Level is a logrus level name: debug, info, warn, error.
	Level string `toml:"level"`
}

func Default() Config {
	return Config{
		Serial: SerialConfig{
			Port:          "/dev/ttyACM0",
			Baud:          115200,
			ReadTimeoutMS: 100,
			SettleMS:      500,
		},
		USB: USBConfig{
			VID:        0x1001,
			PID:        0x8023,
			EPOut:      0x01,
			EPIn:       0x81,
			TimeoutMS:  1000,
			Interfaces: []int{0, 1},
			SettleMS:   1000,
		},
		Poll: PollConfig{
			IntervalMS:    0,
			LivenessEvery: 50,
			EnableValue:   1,
			DisableValue:  0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file over the defaults. A missing file at the default
// path is not an error; an explicitly named missing file is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial.port must not be empty")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.ReadTimeoutMS <= 0 {
		return fmt.Errorf("serial.read_timeout_ms must be positive, got %d", c.Serial.ReadTimeoutMS)
	}
	if c.USB.VID == 0 || c.USB.PID == 0 {
		return fmt.Errorf("usb.vid and usb.pid must be set")
	}
	if c.USB.EPIn&0x80 == 0 {
		return fmt.Errorf("usb.ep_in 0x%02x is not an IN endpoint address", c.USB.EPIn)
	}
	if c.USB.EPOut&0x80 != 0 {
		return fmt.Errorf("usb.ep_out 0x%02x is not an OUT endpoint address", c.USB.EPOut)
	}
	if c.USB.TimeoutMS <= 0 {
		return fmt.Errorf("usb.timeout_ms must be positive, got %d", c.USB.TimeoutMS)
	}
	if c.Poll.IntervalMS < 0 {
		return fmt.Errorf("poll.interval_ms must not be negative, got %d", c.Poll.IntervalMS)
	}
	if c.Poll.LivenessEvery <= 0 {
		return fmt.Errorf("poll.liveness_every must be positive, got %d", c.Poll.LivenessEvery)
	}
	if c.Poll.EnableValue == c.Poll.DisableValue {
		return fmt.Errorf("poll.enable_value and poll.disable_value must differ")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not a known level", c.Log.Level)
	}
	return nil
}

// SerialInterval and USBInterval return the poll pacing with the
// per-transport defaults applied.
func (c Config) SerialInterval() time.Duration {
	if c.Poll.IntervalMS > 0 {
		return time.Duration(c.Poll.IntervalMS) * time.Millisecond
	}
	return 10 * time.Millisecond
}

func (c Config) USBInterval() time.Duration {
	if c.Poll.IntervalMS > 0 {
		return time.Duration(c.Poll.IntervalMS) * time.Millisecond
	}
	return 20 * time.Millisecond
}
