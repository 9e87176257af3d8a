// Package link provides the transports used to talk to the robot: a serial
// CDC-ACM adapter, a USB bulk-transfer adapter, and an in-memory mock.
package link

// Link is the transport surface seen by the poll loop. Implementations own
// the underlying OS resource and release it on Close.
//
// Read returns ErrNoData when a full n-byte packet could not be obtained
// within the transport's deadline; that is a per-iteration skip, not a
// failure. Fatal transport failures are reported as *TransportError.
type Link interface {
	Write(p []byte) error
	Read(n int) ([]byte, error)
	Close() error
	String() string
}
