// Package snapshot records the last blended transform of every bone on an instance, along with the
// per-channel progress used to blend into new clips and relax undriven bones back to rest.
package snapshot

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/go-gl/mathgl/mgl64"
)

// ChannelState is the recorded state of one transform channel.
type ChannelState struct {
	// Value is the last value applied to the bone for this channel.
	Value mgl64.Vec3

	// InProgress is true while a controller is driving the channel.
	InProgress bool

	// LastReset is the tick at which a controller last stopped driving the channel.
	LastReset float64
}

// BoneSnapshot is the recorded state of one bone on one instance.
type BoneSnapshot struct {
	Bone     string
	channels [3]ChannelState
}

// New creates a snapshot seeded from a bone's rest transform.
//
// Parameters:
//   - name: the bone name
//   - initial: the bone's rest transform
//
// Returns:
//   - *BoneSnapshot: the new snapshot
func New(name string, initial bone.InitialSnapshot) *BoneSnapshot {
	s := &BoneSnapshot{Bone: name}
	s.channels[common.ChannelRotation].Value = initial.Rotation
	s.channels[common.ChannelPosition].Value = initial.Position
	s.channels[common.ChannelScale].Value = initial.Scale
	return s
}

// Channel returns a copy of the recorded state of a channel.
func (s *BoneSnapshot) Channel(c common.Channel) ChannelState {
	return s.channels[c]
}

// Value returns the last value applied to a channel.
func (s *BoneSnapshot) Value(c common.Channel) mgl64.Vec3 {
	return s.channels[c].Value
}

// Rotation returns the last applied rotation.
func (s *BoneSnapshot) Rotation() mgl64.Vec3 { return s.channels[common.ChannelRotation].Value }

// Position returns the last applied position.
func (s *BoneSnapshot) Position() mgl64.Vec3 { return s.channels[common.ChannelPosition].Value }

// Scale returns the last applied scale.
func (s *BoneSnapshot) Scale() mgl64.Vec3 { return s.channels[common.ChannelScale].Value }

// Update records a newly applied value for a channel.
func (s *BoneSnapshot) Update(c common.Channel, v mgl64.Vec3) {
	s.channels[c].Value = v
}

// Start marks a channel as driven by a controller.
func (s *BoneSnapshot) Start(c common.Channel) {
	s.channels[c].InProgress = true
}

// Stop marks a channel as no longer driven and records the tick the relax starts from.
func (s *BoneSnapshot) Stop(c common.Channel, tick float64) {
	s.channels[c].InProgress = false
	s.channels[c].LastReset = tick
}

// InProgress reports whether a controller drove the channel on the last tick it was processed.
func (s *BoneSnapshot) InProgress(c common.Channel) bool {
	return s.channels[c].InProgress
}

// LastReset returns the tick at which the channel last stopped being driven.
func (s *BoneSnapshot) LastReset(c common.Channel) float64 {
	return s.channels[c].LastReset
}

// Copy returns an independent copy of the snapshot.
func (s *BoneSnapshot) Copy() *BoneSnapshot {
	cp := *s
	return &cp
}
