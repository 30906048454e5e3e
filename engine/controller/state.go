package controller

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/expression"
	"github.com/pkg/errors"
)

// State is the playback state of a controller.
type State int

const (
	// StateStopped means the controller produces no output.
	StateStopped State = iota
	// StateTransitioning means the controller is blending from the last pose into its next clip.
	StateTransitioning
	// StateRunning means the controller is sampling its current clip.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateTransitioning:
		return "transitioning"
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// MarshalText renders the state by name, for JSON inspection.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PlayState is a state handler's decision on whether the controller keeps playing.
type PlayState int

const (
	// PlayStateContinue keeps the controller playing.
	PlayStateContinue PlayState = iota
	// PlayStateStop stops the controller for this tick.
	PlayStateStop
)

// Verdict is the result of a state handler: keep playing or stop, and optionally a request to play.
type Verdict struct {
	Play    PlayState
	Request *clip.RawAnimation
}

// Continue keeps the controller on whatever it is already playing.
func Continue() Verdict {
	return Verdict{Play: PlayStateContinue}
}

// Play keeps the controller playing and asks it to play req. Returning the same request every
// tick is free; the controller only reloads when the request changes.
func Play(req *clip.RawAnimation) Verdict {
	return Verdict{Play: PlayStateContinue, Request: req}
}

// Halt stops the controller for this tick.
func Halt() Verdict {
	return Verdict{Play: PlayStateStop}
}

// FrameContext is what a controller and its handlers see about the instance being ticked.
type FrameContext struct {
	// InstanceID is the host's stable identifier for the instance.
	InstanceID uint64

	// Time is the host time the instance is being ticked at.
	Time float64

	// Controller is the controller currently being processed. Set by the processor.
	Controller Controller

	// Query is the instance's evaluation context for expression keyframes.
	Query *expression.Context

	// Extra carries host-defined per-frame data such as movement flags.
	Extra map[string]any
}

// Bool reads a boolean from Extra, false if absent.
func (f *FrameContext) Bool(key string) bool {
	if f == nil || f.Extra == nil {
		return false
	}
	v, _ := f.Extra[key].(bool)
	return v
}

// StateHandler decides every tick whether a controller keeps playing and what it should play.
type StateHandler interface {
	Handle(frame *FrameContext) Verdict
}

// StateHandlerFunc adapts a function to StateHandler.
type StateHandlerFunc func(frame *FrameContext) Verdict

// Handle calls f.
func (f StateHandlerFunc) Handle(frame *FrameContext) Verdict {
	return f(frame)
}

// SoundKeyframe is delivered to a SoundHandler when a sound marker is reached.
type SoundKeyframe struct {
	Tick       float64
	Controller Controller
	Frame      *FrameContext
	Data       clip.SoundEvent
}

// ParticleKeyframe is delivered to a ParticleHandler when a particle marker is reached.
type ParticleKeyframe struct {
	Tick       float64
	Controller Controller
	Frame      *FrameContext
	Data       clip.ParticleEvent
}

// CustomKeyframe is delivered to a CustomHandler when a custom instruction marker is reached.
type CustomKeyframe struct {
	Tick       float64
	Controller Controller
	Frame      *FrameContext
	Data       clip.CustomEvent
}

// SoundHandler receives sound markers.
type SoundHandler func(e SoundKeyframe)

// ParticleHandler receives particle markers.
type ParticleHandler func(e ParticleKeyframe)

// CustomHandler receives custom instruction markers.
type CustomHandler func(e CustomKeyframe)

// ErrMissingBone is matched by errors.Is for every MissingBoneError.
var ErrMissingBone = errors.New("missing bone")

// MissingBoneError reports a clip track that targets a bone the model does not have.
type MissingBoneError struct {
	Bone string
	Clip string
}

func (e *MissingBoneError) Error() string {
	return fmt.Sprintf("could not find bone %q used by clip %q", e.Bone, e.Clip)
}

// Is makes errors.Is(err, ErrMissingBone) hold.
func (e *MissingBoneError) Is(target error) bool {
	return target == ErrMissingBone
}
