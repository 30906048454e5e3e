package bone

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl64"
)

// Bone represents a single named node in a model's transform hierarchy.
// Bones are authored data: the rest transform stored here never changes while animating.
// The per-frame animated values live in a Pose owned by each animated instance.
type Bone struct {
	// Name is the bone's identifier, unique within a model. Clip tracks target bones by this name.
	Name string

	// Pivot is the point the bone rotates and scales around, in model units.
	Pivot mgl64.Vec3

	// Rotation is the rest euler rotation in radians, in model space.
	Rotation mgl64.Vec3

	// Position is the rest positional offset relative to the parent.
	Position mgl64.Vec3

	// Scale is the rest scale. A zero vector is treated as unit scale when the snapshot is taken.
	Scale mgl64.Vec3

	// Parent is a non-owning back reference. Nil for root bones.
	Parent *Bone

	// Children are the bones parented to this one.
	Children []*Bone
}

// InitialSnapshot is the immutable copy of a bone's rest transform taken at registration.
// It is the target the relax pass interpolates undriven channels toward.
type InitialSnapshot struct {
	Rotation mgl64.Vec3
	Position mgl64.Vec3
	Scale    mgl64.Vec3
}

// Value returns the rest value of a channel.
func (s InitialSnapshot) Value(c common.Channel) mgl64.Vec3 {
	switch c {
	case common.ChannelRotation:
		return s.Rotation
	case common.ChannelPosition:
		return s.Position
	default:
		return s.Scale
	}
}

// NewBone creates a root bone with unit scale.
//
// Parameters:
//   - name: the bone identifier
//
// Returns:
//   - *Bone: the new bone
func NewBone(name string) *Bone {
	return &Bone{
		Name:  name,
		Scale: mgl64.Vec3{1, 1, 1},
	}
}

// AddChild parents child to b and returns child so hierarchies can be built fluently.
//
// Parameters:
//   - child: the bone to attach
//
// Returns:
//   - *Bone: the attached child
func (b *Bone) AddChild(child *Bone) *Bone {
	child.Parent = b
	b.Children = append(b.Children, child)
	return child
}

// Snapshot captures the bone's current rest transform as an InitialSnapshot.
//
// Returns:
//   - InitialSnapshot: the captured rest transform
func (b *Bone) Snapshot() InitialSnapshot {
	scale := b.Scale
	if scale == (mgl64.Vec3{}) {
		scale = mgl64.Vec3{1, 1, 1}
	}
	return InitialSnapshot{
		Rotation: b.Rotation,
		Position: b.Position,
		Scale:    scale,
	}
}
