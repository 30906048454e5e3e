package clip

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/easing"
	"github.com/Carmen-Shannon/oxy-anim/engine/expression"
)

// Keyframe is one time-bounded segment of a single-axis track.
type Keyframe struct {
	// Length is the duration of the segment in ticks.
	Length float64

	// Start is the value at the beginning of the segment.
	Start expression.Value

	// End is the value at the end of the segment.
	End expression.Value

	// Easing shapes the segment when the controller has no easing of its own. Nil means linear.
	Easing easing.Func

	// NoEasingOverride forces linear interpolation regardless of any controller or keyframe easing.
	NoEasingOverride bool
}

// KeyframeStack holds the three independent axis tracks of one channel.
type KeyframeStack struct {
	X []Keyframe
	Y []Keyframe
	Z []Keyframe
}

// Axis returns the keyframes for the given axis.
//
// Parameters:
//   - a: the axis
//
// Returns:
//   - []Keyframe: the axis track
func (s KeyframeStack) Axis(a common.Axis) []Keyframe {
	switch a {
	case common.AxisX:
		return s.X
	case common.AxisY:
		return s.Y
	default:
		return s.Z
	}
}

// Empty reports whether no axis carries keyframes.
func (s KeyframeStack) Empty() bool {
	return len(s.X) == 0 && len(s.Y) == 0 && len(s.Z) == 0
}

// Length returns the longest axis duration of the stack.
func (s KeyframeStack) Length() float64 {
	var out float64
	for _, a := range common.Axes {
		if l := TrackLength(s.Axis(a)); l > out {
			out = l
		}
	}
	return out
}

// TrackLength sums the segment lengths of a single-axis track.
//
// Parameters:
//   - frames: the keyframes
//
// Returns:
//   - float64: the total duration
func TrackLength(frames []Keyframe) float64 {
	var total float64
	for _, kf := range frames {
		total += kf.Length
	}
	return total
}

// BoneTrack is the set of channel stacks a clip drives on a single bone.
type BoneTrack struct {
	Bone     string
	Rotation KeyframeStack
	Position KeyframeStack
	Scale    KeyframeStack
}

// Channel returns the stack for the given channel.
//
// Parameters:
//   - c: the channel
//
// Returns:
//   - KeyframeStack: the channel's keyframes
func (t *BoneTrack) Channel(c common.Channel) KeyframeStack {
	switch c {
	case common.ChannelRotation:
		return t.Rotation
	case common.ChannelPosition:
		return t.Position
	default:
		return t.Scale
	}
}
