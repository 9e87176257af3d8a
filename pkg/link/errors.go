package link

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoData         = errors.New("no full packet available")
	ErrClosed         = errors.New("link is closed")
	ErrDeviceNotFound = errors.New("device not found")
	ErrClaimFailed    = errors.New("unable to claim a usb interface")
)

// TransportError wraps a fatal transport failure. The poll loop terminates
// when it sees one; everything else is recoverable per iteration.
type TransportError struct {
	Op  string // operation that failed: "open", "write", "read", "claim"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether an error should terminate the poll loop.
func IsFatal(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
