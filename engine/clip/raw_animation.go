package clip

// Stage is one (clip name, loop policy) pair of a RawAnimation.
type Stage struct {
	Clip string
	Loop LoopPolicy
}

// Equal reports whether two stages name the same clip with the same policy.
func (s Stage) Equal(o Stage) bool {
	return s.Clip == o.Clip && s.Loop.Name() == o.Loop.Name()
}

// RawAnimation is an unresolved request: an ordered chain of stages played in insertion order.
// Requests are cheap to compare structurally and may be cached and reused.
//
//	clip.Begin().ThenPlay("open").ThenLoop("idle")
type RawAnimation struct {
	stages []Stage
}

// Begin starts a new, empty request chain.
//
// Returns:
//   - *RawAnimation: the new request
func Begin() *RawAnimation {
	return &RawAnimation{}
}

// CopyOf creates a shallow copy of other that can be appended to independently.
//
// Parameters:
//   - other: the request to copy
//
// Returns:
//   - *RawAnimation: the copy
func CopyOf(other *RawAnimation) *RawAnimation {
	r := Begin()
	if other != nil {
		r.stages = append(r.stages, other.stages...)
	}
	return r
}

// ThenPlay appends a stage that plays once.
func (r *RawAnimation) ThenPlay(name string) *RawAnimation {
	return r.Then(name, PlayOnce)
}

// ThenLoop appends a stage that loops until replaced.
func (r *RawAnimation) ThenLoop(name string) *RawAnimation {
	return r.Then(name, Loop)
}

// ThenHold appends a stage that holds its last frame until replaced.
func (r *RawAnimation) ThenHold(name string) *RawAnimation {
	return r.Then(name, HoldOnLastFrame)
}

// ThenPlayXTimes appends count play-once stages of the same clip.
func (r *RawAnimation) ThenPlayXTimes(name string, count int) *RawAnimation {
	for i := 0; i < count; i++ {
		r.ThenPlay(name)
	}
	return r
}

// Then appends a stage with an explicit loop policy.
//
// Parameters:
//   - name: the clip name
//   - loop: the loop policy
//
// Returns:
//   - *RawAnimation: the receiver, for chaining
func (r *RawAnimation) Then(name string, loop LoopPolicy) *RawAnimation {
	r.stages = append(r.stages, Stage{Clip: name, Loop: loop})
	return r
}

// Stages returns a copy of the stage chain.
func (r *RawAnimation) Stages() []Stage {
	if r == nil {
		return nil
	}
	out := make([]Stage, len(r.stages))
	copy(out, r.stages)
	return out
}

// Empty reports whether the request has no stages. A nil request is empty.
func (r *RawAnimation) Empty() bool {
	return r == nil || len(r.stages) == 0
}

// Equal compares two requests structurally. Two nil requests are equal.
//
// Parameters:
//   - o: the other request
//
// Returns:
//   - bool: true if both carry the same stage sequence
func (r *RawAnimation) Equal(o *RawAnimation) bool {
	if r == nil || o == nil {
		return r == o
	}
	if len(r.stages) != len(o.stages) {
		return false
	}
	for i := range r.stages {
		if !r.stages[i].Equal(o.stages[i]) {
			return false
		}
	}
	return true
}

// String renders the request for logs, e.g. "open(play_once) -> idle(loop)".
func (r *RawAnimation) String() string {
	if r.Empty() {
		return "<empty>"
	}
	var out string
	for i, s := range r.stages {
		if i > 0 {
			out += " -> "
		}
		out += s.Clip + "(" + s.Loop.Name() + ")"
	}
	return out
}
