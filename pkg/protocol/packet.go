package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Wire format constants for the ElectronBot USB/CDC protocol.
const (
	// CommandPacketLen is the size of the outbound heartbeat/command packet.
	CommandPacketLen = 224

	// TelemetryPacketLen is the size of the inbound joint telemetry packet.
	TelemetryPacketLen = 32

	// ServoCount is the number of joints reported by the firmware.
	ServoCount = 6

	anglesOffset = 1
	anglesLen    = ServoCount * 4

	// The command packet tail carries a 32-byte joint block, mirroring the
	// frame protocol where 192 pixel bytes are followed by the joint config.
	jointBlockLen    = 32
	jointBlockOffset = CommandPacketLen - jointBlockLen
)

// EnableValue and DisableValue are the bytes written at offset 0 of the
// command packet. The firmware sources disagree on polarity: the vendor test
// script writes 0 while calling it enabled, the desktop app writes 1. Both are
// left configurable instead of guessing.
var (
	EnableValue  byte = 1
	DisableValue byte = 0
)

// Telemetry is a decoded 32-byte reply from the robot.
type Telemetry struct {
	Status    byte
	Angles    [ServoCount]float32
	Timestamp time.Time
	Payload   []byte
}

// JointCommand holds the enable flag and six target joint angles sent to the
// device inside the command packet tail.
type JointCommand struct {
	Enable byte
	Angles [ServoCount]float32
}

// EncodeCommand builds the 224-byte heartbeat packet. Every byte is zero
// except offset 0, which carries EnableValue or DisableValue.
func EncodeCommand(enabled bool) []byte {
	buf := make([]byte, CommandPacketLen)
	if enabled {
		buf[0] = EnableValue
	} else {
		buf[0] = DisableValue
	}
	return buf
}

// EncodeJointBlock serializes a JointCommand into the 32-byte layout used by
// the firmware: enable flag at offset 0, six little-endian float32 angles at
// offsets 1..25, the remaining 7 bytes zero.
func EncodeJointBlock(cmd JointCommand) []byte {
	buf := make([]byte, jointBlockLen)
	buf[0] = cmd.Enable
	for i, angle := range cmd.Angles {
		binary.LittleEndian.PutUint32(buf[anglesOffset+i*4:], math.Float32bits(angle))
	}
	return buf
}

// EncodeCommandWithJoints builds a heartbeat packet whose tail (bytes
// 192..224) carries the given joint block. Byte 0 carries the enable flag as
// in EncodeCommand so the packet also works as a plain heartbeat.
func EncodeCommandWithJoints(cmd JointCommand) []byte {
	buf := make([]byte, CommandPacketLen)
	buf[0] = cmd.Enable
	copy(buf[jointBlockOffset:], EncodeJointBlock(cmd))
	return buf
}

// DecodeTelemetry parses a telemetry reply. Byte 0 is a status byte, bytes
// 1..25 are six little-endian float32 joint angles. Buffers shorter than 25
// bytes are rejected; trailing bytes beyond offset 25 are ignored.
func DecodeTelemetry(buf []byte) (Telemetry, error) {
	if len(buf) < anglesOffset+anglesLen {
		return Telemetry{}, fmt.Errorf("telemetry packet too short: got %d bytes, need at least %d", len(buf), anglesOffset+anglesLen)
	}

	tm := Telemetry{
		Status:    buf[0],
		Timestamp: time.Now(),
		Payload:   append([]byte(nil), buf...),
	}
	for i := 0; i < ServoCount; i++ {
		bits := binary.LittleEndian.Uint32(buf[anglesOffset+i*4:])
		tm.Angles[i] = math.Float32frombits(bits)
	}
	return tm, nil
}

// RawPacket preserves undecodable replies for diagnostics.
type RawPacket struct {
	Payload []byte
}

func (rp RawPacket) MarshalJSON() ([]byte, error) {
	type rawPacketJSON struct {
		PayloadHex string `json:"payload_hex"`
	}
	return json.Marshal(rawPacketJSON{PayloadHex: hex.EncodeToString(rp.Payload)})
}

func (rp RawPacket) String() string {
	return hex.EncodeToString(rp.Payload)
}
