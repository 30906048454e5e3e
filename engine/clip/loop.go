package clip

// Action is what a controller does once its current clip reaches its end.
type Action int

const (
	// ActionAdvance moves to the next queued clip, or stops if the queue is empty.
	ActionAdvance Action = iota
	// ActionRestart replays the current clip from tick 0 without a transition.
	ActionRestart
	// ActionHold keeps the clip running, frozen on its last frame.
	ActionHold
)

func (a Action) String() string {
	switch a {
	case ActionRestart:
		return "restart"
	case ActionHold:
		return "hold"
	default:
		return "advance"
	}
}

// LoopPolicy decides what happens when a clip finishes. Policies compare equal by name.
type LoopPolicy struct {
	name   string
	decide func(c *Clip) Action
}

var (
	// PlayOnce plays the clip a single time and then advances.
	PlayOnce = LoopPolicy{name: "play_once", decide: func(*Clip) Action { return ActionAdvance }}

	// Loop replays the clip until another request replaces it.
	Loop = LoopPolicy{name: "loop", decide: func(*Clip) Action { return ActionRestart }}

	// HoldOnLastFrame freezes on the final frame until another request replaces it.
	HoldOnLastFrame = LoopPolicy{name: "hold_on_last_frame", decide: func(*Clip) Action { return ActionHold }}

	// DefaultLoop defers to the loop policy authored on the clip itself.
	DefaultLoop = LoopPolicy{name: "default"}
)

// CustomLoop creates a named policy driven by a predicate.
// The name is the policy's identity for request equality.
//
// Parameters:
//   - name: the policy name
//   - fn: the predicate deciding the action when a clip ends
//
// Returns:
//   - LoopPolicy: the custom policy
func CustomLoop(name string, fn func(c *Clip) Action) LoopPolicy {
	return LoopPolicy{name: "custom:" + name, decide: fn}
}

// Name returns the policy identity.
func (p LoopPolicy) Name() string {
	if p.name == "" {
		return DefaultLoop.name
	}
	return p.name
}

// Decide returns the action for a clip that has reached its end.
// DefaultLoop resolves through the clip's own policy and falls back to PlayOnce.
//
// Parameters:
//   - c: the finished clip
//
// Returns:
//   - Action: what the controller should do next
func (p LoopPolicy) Decide(c *Clip) Action {
	if p.decide != nil {
		return p.decide(c)
	}
	if c != nil && c.Loop.decide != nil {
		return c.Loop.decide(c)
	}
	return ActionAdvance
}

// ParseLoop maps an authored loop value onto a policy. Unknown names resolve to PlayOnce.
//
// Parameters:
//   - name: the authored value ("loop", "true", "hold_on_last_frame", ...)
//
// Returns:
//   - LoopPolicy: the resolved policy
func ParseLoop(name string) LoopPolicy {
	switch name {
	case "loop", "true":
		return Loop
	case "hold_on_last_frame", "hold":
		return HoldOnLastFrame
	case "default":
		return DefaultLoop
	default:
		return PlayOnce
	}
}
