package link

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
)

// USBConfig holds the parameters for opening the vendor bulk interface.
type USBConfig struct {
	// VID/PID identify the robot. Defaults are 0x1001:0x8023.
	VID uint16
	PID uint16

	// EPOut and EPIn are bulk endpoint addresses. Defaults 0x01 and 0x81.
	EPOut byte
	EPIn  byte

	// Timeout bounds each bulk transfer. Defaults to 1s.
	Timeout time.Duration

	// Interfaces are the claim candidates, tried in order. Defaults to 0, 1.
	Interfaces []int

	// SettleDelay is the re-enumeration wait after the device reset.
	// Defaults to 1s.
	SettleDelay time.Duration
}

// USBLink talks to the robot over libusb bulk transfers. Any transfer error
// in steady state is fatal: the loop terminates and the device is released.
type USBLink struct {
	usbCtx  *gousb.Context
	dev     *gousb.Device
	cfg     *gousb.Config
	intf    *gousb.Interface
	in      *gousb.InEndpoint
	out     *gousb.OutEndpoint
	timeout time.Duration
	desc    string

	closeOnce sync.Once
	closeErr  error
}

// OpenUSB enumerates the device by VID/PID, resets it, waits for
// re-enumeration and claims the first interface candidate that succeeds,
// detaching any bound kernel driver first.
func OpenUSB(cfg USBConfig) (*USBLink, error) {
	if cfg.VID == 0 {
		cfg.VID = 0x1001
	}
	if cfg.PID == 0 {
		cfg.PID = 0x8023
	}
	if cfg.EPOut == 0 {
		cfg.EPOut = 0x01
	}
	if cfg.EPIn == 0 {
		cfg.EPIn = 0x81
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	if len(cfg.Interfaces) == 0 {
		cfg.Interfaces = []int{0, 1}
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = time.Second
	}

	usbCtx := gousb.NewContext()

	dev, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(cfg.VID), gousb.ID(cfg.PID))
	if err != nil {
		usbCtx.Close()
		return nil, &TransportError{Op: "open", Err: err}
	}
	if dev == nil {
		usbCtx.Close()
		return nil, fmt.Errorf("usb %04x:%04x: %w", cfg.VID, cfg.PID, ErrDeviceNotFound)
	}

	if err := dev.Reset(); err != nil {
		dev.Close()
		usbCtx.Close()
		return nil, &TransportError{Op: "reset", Err: err}
	}
	time.Sleep(cfg.SettleDelay)

	// Let libusb detach the cdc_acm kernel driver before claiming.
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		usbCtx.Close()
		return nil, &TransportError{Op: "claim", Err: err}
	}

	usbCfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		usbCtx.Close()
		return nil, &TransportError{Op: "claim", Err: err}
	}

	var intf *gousb.Interface
	var claimErr error
	for _, num := range cfg.Interfaces {
		intf, err = usbCfg.Interface(num, 0)
		if err == nil {
			break
		}
		if claimErr == nil {
			claimErr = err
		}
		intf = nil
	}
	if intf == nil {
		usbCfg.Close()
		dev.Close()
		usbCtx.Close()
		return nil, fmt.Errorf("%w (try elevated privileges): %v", ErrClaimFailed, claimErr)
	}

	out, err := intf.OutEndpoint(int(cfg.EPOut & 0x0F))
	if err != nil {
		intf.Close()
		usbCfg.Close()
		dev.Close()
		usbCtx.Close()
		return nil, &TransportError{Op: "claim", Err: fmt.Errorf("out endpoint 0x%02x: %w", cfg.EPOut, err)}
	}
	in, err := intf.InEndpoint(int(cfg.EPIn & 0x0F))
	if err != nil {
		intf.Close()
		usbCfg.Close()
		dev.Close()
		usbCtx.Close()
		return nil, &TransportError{Op: "claim", Err: fmt.Errorf("in endpoint 0x%02x: %w", cfg.EPIn, err)}
	}

	return &USBLink{
		usbCtx:  usbCtx,
		dev:     dev,
		cfg:     usbCfg,
		intf:    intf,
		in:      in,
		out:     out,
		timeout: cfg.Timeout,
		desc:    fmt.Sprintf("usb:%04x:%04x", cfg.VID, cfg.PID),
	}, nil
}

// Write sends the whole buffer over the bulk-out endpoint.
func (l *USBLink) Write(p []byte) error {
	written := 0
	for written < len(p) {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		n, err := l.out.WriteContext(ctx, p[written:])
		cancel()
		if err != nil {
			return &TransportError{Op: "write", Err: err}
		}
		written += n
	}
	return nil
}

// Read blocks until exactly n bytes arrive on the bulk-in endpoint or the
// transfer timeout expires. Timeouts and transfer failures are both fatal; a
// silent device over USB means the link is down.
func (l *USBLink) Read(n int) ([]byte, error) {
	buf := make([]byte, n)
	total := 0
	for total < n {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		m, err := l.in.ReadContext(ctx, buf[total:])
		cancel()
		if err != nil {
			return nil, &TransportError{Op: "read", Err: err}
		}
		total += m
	}
	return buf, nil
}

// Close releases the interface, configuration, device handle and libusb
// context, in that order, exactly once.
func (l *USBLink) Close() error {
	l.closeOnce.Do(func() {
		l.intf.Close()
		if err := l.cfg.Close(); err != nil {
			l.closeErr = err
		}
		if err := l.dev.Close(); err != nil && l.closeErr == nil {
			l.closeErr = err
		}
		if err := l.usbCtx.Close(); err != nil && l.closeErr == nil {
			l.closeErr = err
		}
	})
	return l.closeErr
}

func (l *USBLink) String() string {
	return l.desc
}
