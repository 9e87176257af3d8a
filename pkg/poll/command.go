package poll

import (
	"sync"

	"github.com/TOTHTOT/ElectronBotCli/pkg/protocol"
)

// CommandState holds the joint command shared between the poll loop and an
// interactive frontend. The poller snapshots it every iteration.
type CommandState struct {
	mu  sync.Mutex
	cmd protocol.JointCommand
}

func NewCommandState(enabled bool) *CommandState {
	s := &CommandState{}
	if enabled {
		s.cmd.Enable = protocol.EnableValue
	} else {
		s.cmd.Enable = protocol.DisableValue
	}
	return s
}

// Set replaces the whole joint command.
func (s *CommandState) Set(cmd protocol.JointCommand) {
	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()
}

// SetAngle updates one target angle, clamped to the joint's range.
func (s *CommandState) SetAngle(i int, v float32) {
	if i < 0 || i >= protocol.ServoCount {
		return
	}
	s.mu.Lock()
	s.cmd.Angles[i] = protocol.ClampAngle(i, v)
	s.mu.Unlock()
}

// SetEnabled flips the enable flag.
func (s *CommandState) SetEnabled(enabled bool) {
	s.mu.Lock()
	if enabled {
		s.cmd.Enable = protocol.EnableValue
	} else {
		s.cmd.Enable = protocol.DisableValue
	}
	s.mu.Unlock()
}

// Snapshot returns a copy of the current joint command.
func (s *CommandState) Snapshot() protocol.JointCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd
}

// Heartbeat is a CommandSource that encodes the current command into a full
// heartbeat packet.
func (s *CommandState) Heartbeat() []byte {
	return protocol.EncodeCommandWithJoints(s.Snapshot())
}
