package link

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialConfig holds the parameters for opening the CDC-ACM serial link.
type SerialConfig struct {
	// Port is the serial device path, e.g. "/dev/ttyACM0".
	Port string

	// BaudRate defaults to 115200.
	BaudRate int

	// ReadTimeout bounds a single Read attempt. Defaults to 100ms.
	ReadTimeout time.Duration

	// SettleDelay is how long DTR+RTS are held asserted before RTS is
	// dropped; this pulses the reset line on the device side. Defaults to
	// 500ms.
	SettleDelay time.Duration
}

// SerialLink talks to the robot over a serial port. The port is opened 8N1
// and the control lines are toggled once at open time to reset the firmware.
type SerialLink struct {
	port        serial.Port
	name        string
	baud        int
	readTimeout time.Duration
	closed      bool
}

// OpenSerial opens the serial port, applies the read timeout and pulses the
// reset sequence. Open failures are fatal; there is no retry.
func OpenSerial(cfg SerialConfig) (*SerialLink, error) {
	if cfg.Port == "" {
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("serial port path is required")}
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 100 * time.Millisecond
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 500 * time.Millisecond
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("open %s: %w", cfg.Port, err)}
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("set read timeout: %w", err)}
	}

	// DTR+RTS high, hold, then drop RTS: the adapter control lines drive the
	// firmware reset input.
	if err := port.SetDTR(true); err != nil {
		port.Close()
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("assert DTR: %w", err)}
	}
	if err := port.SetRTS(true); err != nil {
		port.Close()
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("assert RTS: %w", err)}
	}
	time.Sleep(cfg.SettleDelay)
	if err := port.SetRTS(false); err != nil {
		port.Close()
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("release RTS: %w", err)}
	}

	return &SerialLink{
		port:        port,
		name:        cfg.Port,
		baud:        cfg.BaudRate,
		readTimeout: cfg.ReadTimeout,
	}, nil
}

func (l *SerialLink) Write(p []byte) error {
	if l.closed {
		return ErrClosed
	}
	written := 0
	for written < len(p) {
		n, err := l.port.Write(p[written:])
		if err != nil {
			return &TransportError{Op: "write", Err: err}
		}
		written += n
	}
	return nil
}

// Read collects up to n bytes within the read timeout window. If the device
// has not produced a full packet yet it returns ErrNoData and the iteration
// is skipped; the wire has no framing, so partial packets are discarded.
func (l *SerialLink) Read(n int) ([]byte, error) {
	if l.closed {
		return nil, ErrClosed
	}
	buf := make([]byte, n)
	total := 0
	deadline := time.Now().Add(l.readTimeout)
	for total < n {
		m, err := l.port.Read(buf[total:])
		if err != nil {
			return nil, &TransportError{Op: "read", Err: err}
		}
		total += m
		// The port returns 0 bytes when its own timeout expires.
		if m == 0 || time.Now().After(deadline) {
			break
		}
	}
	if total < n {
		return nil, ErrNoData
	}
	return buf, nil
}

func (l *SerialLink) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.port.Close()
}

func (l *SerialLink) String() string {
	return fmt.Sprintf("serial:%s@%d", l.name, l.baud)
}

// ListPorts enumerates the serial ports available on the host.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
