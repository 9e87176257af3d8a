package main

import (
	"math"
	"time"

	"github.com/TOTHTOT/ElectronBotCli/pkg/link"
	"github.com/TOTHTOT/ElectronBotCli/pkg/protocol"
)

// Per-joint sweep frequencies and phases so the mock angles drift visibly
// out of step with each other.
var (
	mockFreqHz = [protocol.ServoCount]float64{0.23, 0.31, 0.17, 0.29, 0.19, 0.13}
	mockPhase  = [protocol.ServoCount]float64{
		0,
		math.Pi / 3,
		2 * math.Pi / 3,
		math.Pi,
		4 * math.Pi / 3,
		5 * math.Pi / 3,
	}
)

// newMockLink emulates the robot: every read yields a telemetry packet with
// each joint sweeping a sine wave inside its mechanical range.
func newMockLink() *link.Mock {
	start := time.Now()
	return &link.Mock{
		ReplyFunc: func(int) ([]byte, error) {
			t := time.Since(start).Seconds()
			var angles [protocol.ServoCount]float32
			for i := range angles {
				_, max := protocol.ServoRange(i)
				angles[i] = max * float32(math.Sin(2*math.Pi*mockFreqHz[i]*t+mockPhase[i]))
			}
			return protocol.EncodeJointBlock(protocol.JointCommand{
				Enable: 1,
				Angles: angles,
			}), nil
		},
	}
}
