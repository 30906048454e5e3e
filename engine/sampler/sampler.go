// Package sampler maps a tick onto a keyframe track and interpolates the result.
package sampler

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/easing"
	"github.com/Carmen-Shannon/oxy-anim/engine/expression"
)

// Point is a single interpolation request: a segment with resolved endpoint values and the
// local tick inside it. Transition points carry no Keyframe.
type Point struct {
	Keyframe    *clip.Keyframe
	CurrentTick float64
	Length      float64
	Start       float64
	End         float64
}

// Locate walks the track accumulating segment lengths until the running total exceeds tick.
// Past the end of the track the last segment is returned with its sub-time clamped to its length.
//
// Parameters:
//   - frames: the time-ordered keyframes of one axis
//   - tick: the local tick to look up
//
// Returns:
//   - *clip.Keyframe: the matching segment, nil for an empty track
//   - float64: the sub-time within that segment
func Locate(frames []clip.Keyframe, tick float64) (*clip.Keyframe, float64) {
	if len(frames) == 0 {
		return nil, 0
	}
	var total float64
	for i := range frames {
		total += frames[i].Length
		if total > tick {
			return &frames[i], tick - (total - frames[i].Length)
		}
	}
	last := &frames[len(frames)-1]
	return last, last.Length
}

// PointAt samples one axis track at tick and resolves its endpoint values.
// Rotation endpoints that are not constants are authored in degrees: they are converted to
// radians with X and Y negated.
//
// Parameters:
//   - frames: the time-ordered keyframes of one axis
//   - tick: the local tick to sample
//   - rotation: true when sampling a rotation channel
//   - axis: the axis being sampled
//   - ctx: the query context for expression values, may be nil
//
// Returns:
//   - Point: the interpolation point
//   - bool: false if the track is empty
func PointAt(frames []clip.Keyframe, tick float64, rotation bool, axis common.Axis, ctx *expression.Context) (Point, bool) {
	kf, sub := Locate(frames, tick)
	if kf == nil {
		return Point{}, false
	}
	return Point{
		Keyframe:    kf,
		CurrentTick: sub,
		Length:      kf.Length,
		Start:       resolve(kf.Start, rotation, axis, ctx),
		End:         resolve(kf.End, rotation, axis, ctx),
	}, true
}

func resolve(v expression.Value, rotation bool, axis common.Axis, ctx *expression.Context) float64 {
	if v == nil {
		return 0
	}
	out := v.Get(ctx)
	if rotation && !v.IsConstant() {
		out = common.ModelRotation(out, axis)
	}
	return out
}

// Easing picks the easing for a point. A keyframe flagged NoEasingOverride is always linear;
// otherwise the controller's easing wins over the keyframe's, and linear is the fallback.
//
// Parameters:
//   - p: the point
//   - override: the controller easing, may be nil
//
// Returns:
//   - easing.Func: the easing to apply
func Easing(p Point, override easing.Func) easing.Func {
	if p.Keyframe != nil && p.Keyframe.NoEasingOverride {
		return easing.Linear
	}
	if override != nil {
		return override
	}
	if p.Keyframe != nil && p.Keyframe.Easing != nil {
		return p.Keyframe.Easing
	}
	return easing.Linear
}

// Lerp evaluates a point. A point at or past its length returns its end value exactly.
//
// Parameters:
//   - p: the point
//   - override: the controller easing, may be nil
//
// Returns:
//   - float64: the interpolated value
func Lerp(p Point, override easing.Func) float64 {
	if p.Length <= 0 || p.CurrentTick >= p.Length {
		return p.End
	}
	t := common.Progress(p.CurrentTick, p.Length)
	return Easing(p, override)(p.Start, p.End, t)
}
