package protocol

// servoSpec describes one joint as exposed by the firmware.
type servoSpec struct {
	name string
	min  float32
	max  float32
}

// Joint order matches the six floats in the telemetry packet.
var servos = [ServoCount]servoSpec{
	{"head", -15, 15},
	{"left shoulder", -30, 30},
	{"left arm", -180, 180},
	{"right shoulder", -30, 30},
	{"right arm", -180, 180},
	{"body", -90, 90},
}

// ServoName returns the display name of a joint index.
func ServoName(i int) string {
	if i < 0 || i >= ServoCount {
		return "unknown"
	}
	return servos[i].name
}

// ServoRange returns the mechanical angle limits of a joint, in degrees.
func ServoRange(i int) (min, max float32) {
	if i < 0 || i >= ServoCount {
		return -125, 125
	}
	return servos[i].min, servos[i].max
}

// ClampAngle restricts a target angle to the joint's mechanical range.
func ClampAngle(i int, v float32) float32 {
	min, max := ServoRange(i)
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
