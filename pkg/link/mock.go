package link

import (
	"sync"
)

// Mock implements Link in memory for tests and the demo transport.
type Mock struct {
	// Replies are returned by Read in order. When exhausted, Read returns
	// ErrNoData unless ReplyFunc is set.
	Replies [][]byte

	// ReplyFunc, when set, produces the reply for each Read call. It takes
	// precedence over Replies.
	ReplyFunc func(iteration int) ([]byte, error)

	// WriteErr / ReadErr force errors for failure-path tests.
	WriteErr error
	ReadErr  error

	mu     sync.Mutex
	writes [][]byte
	reads  int
	closes int
}

func (m *Mock) Write(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closes > 0 {
		return ErrClosed
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.writes = append(m.writes, append([]byte(nil), p...))
	return nil
}

func (m *Mock) Read(n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closes > 0 {
		return nil, ErrClosed
	}
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}

	iteration := m.reads
	m.reads++

	if m.ReplyFunc != nil {
		return m.ReplyFunc(iteration)
	}
	if len(m.Replies) == 0 {
		return nil, ErrNoData
	}
	reply := m.Replies[0]
	m.Replies = m.Replies[1:]
	return reply, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

func (m *Mock) String() string {
	return "mock"
}

// Writes returns a copy of everything written to the link.
func (m *Mock) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// CloseCount reports how many times Close was called.
func (m *Mock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}
