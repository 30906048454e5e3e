package bone

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl64"
)

// State is the live, animated transform of one bone on one instance.
// The changed markers record which channels were written during the current tick.
type State struct {
	Rotation mgl64.Vec3
	Position mgl64.Vec3
	Scale    mgl64.Vec3

	rotationChanged bool
	positionChanged bool
	scaleChanged    bool
}

// MarkRotationChanged flags the rotation channel as written this tick.
func (s *State) MarkRotationChanged() { s.rotationChanged = true }

// MarkPositionChanged flags the position channel as written this tick.
func (s *State) MarkPositionChanged() { s.positionChanged = true }

// MarkScaleChanged flags the scale channel as written this tick.
func (s *State) MarkScaleChanged() { s.scaleChanged = true }

// RotationChanged reports whether the rotation channel was written this tick.
func (s *State) RotationChanged() bool { return s.rotationChanged }

// PositionChanged reports whether the position channel was written this tick.
func (s *State) PositionChanged() bool { return s.positionChanged }

// ScaleChanged reports whether the scale channel was written this tick.
func (s *State) ScaleChanged() bool { return s.scaleChanged }

// Get returns the live value of a channel.
func (s *State) Get(c common.Channel) mgl64.Vec3 {
	switch c {
	case common.ChannelRotation:
		return s.Rotation
	case common.ChannelPosition:
		return s.Position
	default:
		return s.Scale
	}
}

// Set writes the live value of a channel without marking it changed.
func (s *State) Set(c common.Channel, v mgl64.Vec3) {
	switch c {
	case common.ChannelRotation:
		s.Rotation = v
	case common.ChannelPosition:
		s.Position = v
	default:
		s.Scale = v
	}
}

// MarkChanged flags a channel as written this tick.
func (s *State) MarkChanged(c common.Channel) {
	switch c {
	case common.ChannelRotation:
		s.rotationChanged = true
	case common.ChannelPosition:
		s.positionChanged = true
	default:
		s.scaleChanged = true
	}
}

// Changed reports whether a channel was written this tick.
func (s *State) Changed(c common.Channel) bool {
	switch c {
	case common.ChannelRotation:
		return s.rotationChanged
	case common.ChannelPosition:
		return s.positionChanged
	default:
		return s.scaleChanged
	}
}

// Transform is a read-only copy of a bone's live transform, handed to renderers and inspectors.
type Transform struct {
	Name     string     `json:"name"`
	Rotation mgl64.Vec3 `json:"rotation"`
	Position mgl64.Vec3 `json:"position"`
	Scale    mgl64.Vec3 `json:"scale"`
}

// Pose holds the live transforms of every bone in a Graph for a single animated instance.
// A Pose is written only by the processor that owns its instance; Read may be called concurrently.
type Pose struct {
	mu sync.RWMutex

	version uint64
	order   []string
	states  map[string]*State
}

// NewPose creates a Pose initialised to the rest transforms of the given graph.
//
// Parameters:
//   - g: the bone graph the pose mirrors
//
// Returns:
//   - *Pose: the new pose
func NewPose(g Graph) *Pose {
	p := &Pose{states: make(map[string]*State)}
	p.Sync(g)
	return p
}

// Sync rebuilds the pose if the graph changed since the last call.
// Bones that survive the change keep their live values; new bones start at rest.
//
// Parameters:
//   - g: the bone graph the pose mirrors
//
// Returns:
//   - bool: true if the pose was rebuilt
func (p *Pose) Sync(g Graph) bool {
	if g == nil {
		return false
	}
	v := g.Version()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.order != nil && p.version == v {
		return false
	}

	names := g.Names()
	states := make(map[string]*State, len(names))
	for _, name := range names {
		if prev, ok := p.states[name]; ok {
			states[name] = prev
			continue
		}
		initial, _ := g.InitialSnapshot(name)
		states[name] = &State{
			Rotation: initial.Rotation,
			Position: initial.Position,
			Scale:    initial.Scale,
		}
	}
	p.order = names
	p.states = states
	p.version = v
	return true
}

// Bone returns the mutable live state of the named bone.
//
// Parameters:
//   - name: the bone name
//
// Returns:
//   - *State: the live state, or nil
//   - bool: true if the bone exists in the pose
func (p *Pose) Bone(name string) (*State, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.states[name]
	return s, ok
}

// ResetFrame clears the changed markers on every bone. Called at the start of each tick.
func (p *Pose) ResetFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.states {
		s.rotationChanged = false
		s.positionChanged = false
		s.scaleChanged = false
	}
}

// Lock acquires exclusive access to the pose while a tick writes to it.
func (p *Pose) Lock() { p.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (p *Pose) Unlock() { p.mu.Unlock() }

// BoneLocked is Bone for callers that already hold the lock via Lock.
func (p *Pose) BoneLocked(name string) (*State, bool) {
	s, ok := p.states[name]
	return s, ok
}

// Read returns a copy of every bone transform in registration order.
//
// Returns:
//   - []Transform: the current transforms
func (p *Pose) Read() []Transform {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Transform, 0, len(p.order))
	for _, name := range p.order {
		s := p.states[name]
		out = append(out, Transform{
			Name:     name,
			Rotation: s.Rotation,
			Position: s.Position,
			Scale:    s.Scale,
		})
	}
	return out
}
