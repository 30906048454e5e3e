// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Axis identifies one of the three independent components of a bone channel.
type Axis int

const (
	// AxisX is the X component.
	AxisX Axis = iota
	// AxisY is the Y component.
	AxisY
	// AxisZ is the Z component.
	AxisZ
)

// Axes lists every Axis in component order, for loops that visit x, y, z.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

// String returns the lowercase axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// Channel identifies one of the three transform channels a bone track can drive.
type Channel int

const (
	// ChannelRotation is the euler rotation channel, in radians once sampled.
	ChannelRotation Channel = iota
	// ChannelPosition is the positional offset channel.
	ChannelPosition
	// ChannelScale is the scale channel.
	ChannelScale
)

// Channels lists every Channel in the order the processor applies them.
var Channels = [3]Channel{ChannelRotation, ChannelPosition, ChannelScale}

// String returns the lowercase channel name.
func (c Channel) String() string {
	switch c {
	case ChannelRotation:
		return "rotation"
	case ChannelPosition:
		return "position"
	case ChannelScale:
		return "scale"
	default:
		return "unknown"
	}
}
