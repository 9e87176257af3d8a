package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TOTHTOT/ElectronBotCli/pkg/bridge/ws"
	"github.com/TOTHTOT/ElectronBotCli/pkg/config"
	"github.com/TOTHTOT/ElectronBotCli/pkg/engine"
	"github.com/TOTHTOT/ElectronBotCli/pkg/link"
	"github.com/TOTHTOT/ElectronBotCli/pkg/logger"
	"github.com/TOTHTOT/ElectronBotCli/pkg/poll"
	"github.com/TOTHTOT/ElectronBotCli/pkg/protocol"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		return runPoll([]string{}, stdout, stderr)
	}

	switch args[0] {
	case "poll":
		return runPoll(args[1:], stdout, stderr)
	case "tui":
		return runTUI(args[1:], stdout, stderr)
	case "ports":
		return runPorts(stdout, stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintln(stderr, "unknown command:", args[0])
		printUsage(stderr)
		return 2
	}
}

type pollFlags struct {
	transport string
	port      string
	baud      int
	cfgPath   string
	logPath   string
	wsAddr    string
	disabled  bool
	interval  time.Duration
}

func parsePollFlags(name string, args []string, stderr io.Writer) (pollFlags, config.Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var pf pollFlags
	fs.StringVar(&pf.transport, "transport", "serial", "link transport: serial, usb or mock")
	fs.StringVar(&pf.port, "port", "", "serial port path (overrides config)")
	fs.IntVar(&pf.baud, "baud", 0, "serial baud rate (overrides config)")
	fs.StringVar(&pf.cfgPath, "config", "", "TOML config path (default: ebotcli.toml if present)")
	fs.StringVar(&pf.logPath, "log", "", "JSONL telemetry log path (overrides config)")
	fs.StringVar(&pf.wsAddr, "ws", "", "WebSocket bridge address (overrides config)")
	fs.BoolVar(&pf.disabled, "disabled", false, "send the heartbeat with the enable flag cleared")
	fs.DurationVar(&pf.interval, "interval", 0, "poll interval (overrides config)")

	if err := fs.Parse(args); err != nil {
		return pf, config.Config{}, err
	}

	cfg, err := config.Load(pf.cfgPath)
	if err != nil {
		return pf, cfg, err
	}

	if pf.port != "" {
		cfg.Serial.Port = pf.port
	}
	if pf.baud > 0 {
		cfg.Serial.Baud = pf.baud
	}
	if pf.logPath != "" {
		cfg.Log.Path = pf.logPath
	}
	if pf.wsAddr != "" {
		cfg.Bridge.WSAddr = pf.wsAddr
	}
	if pf.interval > 0 {
		cfg.Poll.IntervalMS = int(pf.interval / time.Millisecond)
	}

	protocol.EnableValue = cfg.Poll.EnableValue
	protocol.DisableValue = cfg.Poll.DisableValue

	return pf, cfg, nil
}

func runPoll(args []string, stdout io.Writer, stderr io.Writer) int {
	pf, cfg, err := parsePollFlags("poll", args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	log := newLogger(stderr, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lk, interval, err := openLink(cfg, pf.transport)
	if err != nil {
		reportOpenError(log, err)
		return 1
	}
	defer lk.Close()
	log.WithField("link", lk.String()).Info("link open")

	hub := engine.NewHub()
	go hub.Run(ctx)

	if cfg.Log.Path != "" {
		file, err := os.Create(cfg.Log.Path)
		if err != nil {
			log.Errorf("open telemetry log: %v", err)
			return 1
		}
		defer file.Close()
		go logger.NewJSONLWriter(file).Consume(ctx, hub.Subscribe())
	}

	if cfg.Bridge.WSAddr != "" {
		srv := ws.NewServer(hub, log)
		go func() {
			if err := srv.Start(ctx, cfg.Bridge.WSAddr); err != nil {
				log.Errorf("telemetry bridge: %v", err)
			}
		}()
	}

	go printTelemetry(ctx, stdout, hub.Subscribe())

	p := poll.New(lk,
		poll.WithInterval(interval),
		poll.WithLivenessEvery(cfg.Poll.LivenessEvery),
		poll.WithCommand(func() []byte { return protocol.EncodeCommand(!pf.disabled) }),
		poll.WithHub(hub),
		poll.WithLogger(log),
	)

	if err := p.Run(ctx); err != nil {
		log.Errorf("link failed: %v", err)
		return 1
	}

	stats := p.Stats()
	fmt.Fprintf(stdout, "stopped by user: %d packets sent, %d received, %d decode errors\n",
		stats.Sent, stats.Received, stats.DecodeErrors)
	return 0
}

func runPorts(stdout io.Writer, stderr io.Writer) int {
	ports, err := link.ListPorts()
	if err != nil {
		fmt.Fprintln(stderr, "list serial ports:", err)
		return 1
	}
	if len(ports) == 0 {
		fmt.Fprintln(stdout, "no serial ports found")
		return 0
	}
	for _, p := range ports {
		fmt.Fprintln(stdout, p)
	}
	return 0
}

// openLink builds the requested transport and returns the poll interval that
// goes with it.
func openLink(cfg config.Config, transport string) (link.Link, time.Duration, error) {
	switch transport {
	case "serial":
		l, err := link.OpenSerial(link.SerialConfig{
			Port:        cfg.Serial.Port,
			BaudRate:    cfg.Serial.Baud,
			ReadTimeout: time.Duration(cfg.Serial.ReadTimeoutMS) * time.Millisecond,
			SettleDelay: time.Duration(cfg.Serial.SettleMS) * time.Millisecond,
		})
		return l, cfg.SerialInterval(), err
	case "usb":
		l, err := link.OpenUSB(link.USBConfig{
			VID:         cfg.USB.VID,
			PID:         cfg.USB.PID,
			EPOut:       cfg.USB.EPOut,
			EPIn:        cfg.USB.EPIn,
			Timeout:     time.Duration(cfg.USB.TimeoutMS) * time.Millisecond,
			Interfaces:  cfg.USB.Interfaces,
			SettleDelay: time.Duration(cfg.USB.SettleMS) * time.Millisecond,
		})
		return l, cfg.USBInterval(), err
	case "mock":
		return newMockLink(), cfg.SerialInterval(), nil
	default:
		return nil, 0, fmt.Errorf("unknown transport %q (want serial, usb or mock)", transport)
	}
}

func reportOpenError(log *logrus.Logger, err error) {
	switch {
	case errors.Is(err, link.ErrDeviceNotFound):
		log.Errorf("%v: is the robot plugged in?", err)
	case errors.Is(err, link.ErrClaimFailed):
		log.Errorf("%v", err)
	default:
		log.Errorf("open link: %v", err)
	}
}

func printTelemetry(ctx context.Context, w io.Writer, in <-chan protocol.Telemetry) {
	count := 0
	for {
		select {
		case <-ctx.Done():
			return
		case tm, ok := <-in:
			if !ok {
				return
			}
			count++
			fmt.Fprintf(w, "angles: %s | seq %d\n", formatAngles(tm.Angles), count)
		}
	}
}

func formatAngles(angles [protocol.ServoCount]float32) string {
	parts := make([]string, len(angles))
	for i, a := range angles {
		parts[i] = fmt.Sprintf("%7.2f", a)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func newLogger(out io.Writer, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  ebotcli poll  [--transport serial|usb|mock] [--port /dev/ttyACM0] [--baud 115200]")
	fmt.Fprintln(w, "                [--config ebotcli.toml] [--log out.jsonl] [--ws 127.0.0.1:8765]")
	fmt.Fprintln(w, "                [--disabled] [--interval 10ms]")
	fmt.Fprintln(w, "  ebotcli tui   [--transport serial|usb|mock] [--port /dev/ttyACM0] [--config ebotcli.toml]")
	fmt.Fprintln(w, "  ebotcli ports")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  poll   write the heartbeat packet and print decoded joint angles (default)")
	fmt.Fprintln(w, "  tui    interactive servo control console")
	fmt.Fprintln(w, "  ports  list serial ports on this host")
}
