package link_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/TOTHTOT/ElectronBotCli/pkg/link"
)

func TestTransportErrorUnwrap(t *testing.T) {
	inner := errors.New("pipe broken")
	err := &link.TransportError{Op: "read", Err: inner}

	if !errors.Is(err, inner) {
		t.Fatalf("expected errors.Is to find the wrapped error")
	}
	if !link.IsFatal(err) {
		t.Fatalf("TransportError must be fatal")
	}
	if link.IsFatal(link.ErrNoData) {
		t.Fatalf("ErrNoData must not be fatal")
	}
}

func TestTransportErrorThroughWrapping(t *testing.T) {
	err := fmt.Errorf("iteration 12: %w", &link.TransportError{Op: "write", Err: errors.New("stall")})
	if !link.IsFatal(err) {
		t.Fatalf("fatal classification must survive wrapping")
	}
}

func TestMockScriptedReplies(t *testing.T) {
	m := &link.Mock{Replies: [][]byte{{0x01}, {0x02}}}

	first, err := m.Read(32)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if len(first) != 1 || first[0] != 0x01 {
		t.Fatalf("unexpected first reply: %v", first)
	}

	if _, err := m.Read(32); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if _, err := m.Read(32); !errors.Is(err, link.ErrNoData) {
		t.Fatalf("exhausted mock should return ErrNoData, got %v", err)
	}
}

func TestMockClosedRejectsIO(t *testing.T) {
	m := &link.Mock{}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := m.Write([]byte{0x00}); !errors.Is(err, link.ErrClosed) {
		t.Fatalf("write after close: got %v", err)
	}
	if _, err := m.Read(32); !errors.Is(err, link.ErrClosed) {
		t.Fatalf("read after close: got %v", err)
	}
	if m.CloseCount() != 1 {
		t.Fatalf("close count: got %d want 1", m.CloseCount())
	}
}

func TestMockRecordsWrites(t *testing.T) {
	m := &link.Mock{}
	if err := m.Write([]byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("write: %v", err)
	}
	writes := m.Writes()
	if len(writes) != 1 || len(writes[0]) != 2 || writes[0][0] != 0xAA {
		t.Fatalf("unexpected writes: %v", writes)
	}
}
