package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TOTHTOT/ElectronBotCli/pkg/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.Default()

	if cfg.Serial.Port != "/dev/ttyACM0" {
		t.Fatalf("default port: got %q", cfg.Serial.Port)
	}
	if cfg.Serial.Baud != 115200 {
		t.Fatalf("default baud: got %d", cfg.Serial.Baud)
	}
	if cfg.USB.VID != 0x1001 || cfg.USB.PID != 0x8023 {
		t.Fatalf("default vid:pid: got %04x:%04x", cfg.USB.VID, cfg.USB.PID)
	}
	if cfg.USB.EPIn != 0x81 || cfg.USB.EPOut != 0x01 {
		t.Fatalf("default endpoints: in 0x%02x out 0x%02x", cfg.USB.EPIn, cfg.USB.EPOut)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.SerialInterval() != 10*time.Millisecond {
		t.Fatalf("serial interval: got %v", cfg.SerialInterval())
	}
	if cfg.USBInterval() != 20*time.Millisecond {
		t.Fatalf("usb interval: got %v", cfg.USBInterval())
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ebotcli.toml")
	content := `
[serial]
port = "/dev/ttyACM3"
baud = 921600

[poll]
interval_ms = 5
enable_value = 0
disable_value = 1

[bridge]
ws_addr = "127.0.0.1:8765"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Serial.Port != "/dev/ttyACM3" {
		t.Fatalf("port override: got %q", cfg.Serial.Port)
	}
	if cfg.Serial.Baud != 921600 {
		t.Fatalf("baud override: got %d", cfg.Serial.Baud)
	}
	// Untouched sections keep defaults.
	if cfg.USB.PID != 0x8023 {
		t.Fatalf("usb defaults lost: got %04x", cfg.USB.PID)
	}
	if cfg.Poll.EnableValue != 0 || cfg.Poll.DisableValue != 1 {
		t.Fatalf("polarity override: got %d/%d", cfg.Poll.EnableValue, cfg.Poll.DisableValue)
	}
	if cfg.SerialInterval() != 5*time.Millisecond {
		t.Fatalf("interval override: got %v", cfg.SerialInterval())
	}
	if cfg.Bridge.WSAddr != "127.0.0.1:8765" {
		t.Fatalf("ws addr: got %q", cfg.Bridge.WSAddr)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty port", func(c *config.Config) { c.Serial.Port = "" }},
		{"zero baud", func(c *config.Config) { c.Serial.Baud = 0 }},
		{"bad ep_in", func(c *config.Config) { c.USB.EPIn = 0x01 }},
		{"bad ep_out", func(c *config.Config) { c.USB.EPOut = 0x81 }},
		{"zero liveness", func(c *config.Config) { c.Poll.LivenessEvery = 0 }},
		{"same polarity", func(c *config.Config) { c.Poll.DisableValue = c.Poll.EnableValue }},
		{"bad level", func(c *config.Config) { c.Log.Level = "loud" }},
	}

	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
