// Package controller implements the per-controller animation state machine: it plays a queue of
// clips in sequence, blends into each new clip from the last known pose and fires timed markers.
package controller

import (
	"log"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/easing"
	"github.com/Carmen-Shannon/oxy-anim/engine/expression"
	"github.com/Carmen-Shannon/oxy-anim/engine/sampler"
	"github.com/Carmen-Shannon/oxy-anim/engine/snapshot"
)

// DefaultName is the name given to controllers built without WithName.
const DefaultName = "base_controller"

type eventKind int

const (
	eventSound eventKind = iota
	eventParticle
	eventCustom
)

type eventKey struct {
	kind  eventKind
	index int
}

// controller is the implementation of the Controller interface.
type controller struct {
	name             string
	transitionLength float64
	handler          StateHandler
	library          clip.Library
	logger           *log.Logger

	speed  func() float64
	easing easing.Func

	soundHandler    SoundHandler
	particleHandler ParticleHandler
	customHandler   CustomHandler

	state      State
	request    *clip.RawAnimation
	queue      []clip.QueuedClip
	current    *clip.QueuedClip
	tickOffset float64

	shouldResetTick bool
	needsReload     bool
	needsPop        bool
	justStarting    bool

	queues       map[string]*BoneQueue
	queueVersion uint64
	restGraph    bone.Graph
	saved        map[string]*snapshot.BoneSnapshot
	executed     map[eventKey]struct{}
}

// Controller plays one chain of clips at a time on an instance.
//
// Each instance can carry several controllers, each driving a different aspect of motion
// (locomotion, attacks, idle fidgets...). Controllers are owned by a single instance and are not
// safe for concurrent use.
type Controller interface {
	// Name returns the controller's name, unique within its instance.
	//
	// Returns:
	//   - string: the controller name
	Name() string

	// State returns the current playback state.
	//
	// Returns:
	//   - State: the playback state
	State() State

	// CurrentClip returns the clip being played or transitioned into.
	//
	// Returns:
	//   - *clip.QueuedClip: the current clip, nil when none has been started
	CurrentClip() *clip.QueuedClip

	// CurrentRequest returns the request the controller last loaded.
	//
	// Returns:
	//   - *clip.RawAnimation: the loaded request, nil if none
	CurrentRequest() *clip.RawAnimation

	// SetAnimation asks the controller to play req. An empty request stops the controller.
	// A request structurally equal to the loaded one is ignored unless a reload was marked.
	// If any stage cannot be resolved the whole request is rejected and the controller stops.
	//
	// Parameters:
	//   - req: the request to play
	SetAnimation(req *clip.RawAnimation)

	// MarkNeedsReload forces the next SetAnimation call to re-resolve its request.
	MarkNeedsReload()

	// Stop stops the controller and discards its queue. The next SetAnimation call always restarts.
	Stop()

	// SetLibrary sets the clip library requests are resolved against.
	//
	// Parameters:
	//   - lib: the clip library
	SetLibrary(lib clip.Library)

	// Library returns the clip library requests are resolved against.
	//
	// Returns:
	//   - clip.Library: the library, nil if none is set
	Library() clip.Library

	// SetJustStarting flags the instance's first tick. A pending clip is started immediately.
	//
	// Parameters:
	//   - v: true on the instance's first tick
	SetJustStarting(v bool)

	// Process advances the controller to seekTime and fills the bone queues for this tick.
	//
	// Parameters:
	//   - seekTime: the host time of this tick
	//   - frame: the frame context passed to the state handler and marker handlers
	//   - g: the model's bone graph
	//   - snapshots: the instance's snapshot store
	//   - crash: when true, a track for a bone missing from g is returned as a *MissingBoneError
	//
	// Returns:
	//   - error: a *MissingBoneError when crash is set and a bone is missing
	Process(seekTime float64, frame *FrameContext, g bone.Graph, snapshots *snapshot.Store, crash bool) error

	// BoneQueues returns the points produced by the last Process call, keyed by bone name.
	//
	// Returns:
	//   - map[string]*BoneQueue: the bone queues
	BoneQueues() map[string]*BoneQueue

	// ClearQueues discards every queued point.
	ClearQueues()

	// EasingOverride returns the controller's easing, nil when keyframes decide.
	//
	// Returns:
	//   - easing.Func: the easing override
	EasingOverride() easing.Func

	// AnimationSpeed returns the current speed multiplier.
	//
	// Returns:
	//   - float64: the speed multiplier
	AnimationSpeed() float64

	// SetSoundHandler sets the receiver for sound markers.
	SetSoundHandler(h SoundHandler)

	// SetParticleHandler sets the receiver for particle markers.
	SetParticleHandler(h ParticleHandler)

	// SetCustomHandler sets the receiver for custom instruction markers.
	SetCustomHandler(h CustomHandler)
}

var _ Controller = &controller{}

// NewController creates a stopped Controller driven by the given state handler.
// A nil handler keeps playing whatever was requested through SetAnimation.
//
// Parameters:
//   - handler: the per-tick state handler
//   - options: variadic list of ControllerBuilderOption functions to configure the Controller
//
// Returns:
//   - Controller: the new controller
func NewController(handler StateHandler, options ...ControllerBuilderOption) Controller {
	c := &controller{
		name:     DefaultName,
		handler:  handler,
		logger:   log.Default(),
		speed:    func() float64 { return 1 },
		state:    StateStopped,
		queues:   make(map[string]*BoneQueue),
		saved:    make(map[string]*snapshot.BoneSnapshot),
		executed: make(map[eventKey]struct{}),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *controller) Name() string {
	return c.name
}

func (c *controller) State() State {
	return c.state
}

func (c *controller) CurrentClip() *clip.QueuedClip {
	return c.current
}

func (c *controller) CurrentRequest() *clip.RawAnimation {
	return c.request
}

func (c *controller) SetLibrary(lib clip.Library) {
	c.library = lib
}

func (c *controller) Library() clip.Library {
	return c.library
}

func (c *controller) SetJustStarting(v bool) {
	c.justStarting = v
}

func (c *controller) MarkNeedsReload() {
	c.needsReload = true
}

func (c *controller) EasingOverride() easing.Func {
	return c.easing
}

func (c *controller) AnimationSpeed() float64 {
	return c.speed()
}

func (c *controller) SetSoundHandler(h SoundHandler) {
	c.soundHandler = h
}

func (c *controller) SetParticleHandler(h ParticleHandler) {
	c.particleHandler = h
}

func (c *controller) SetCustomHandler(h CustomHandler) {
	c.customHandler = h
}

func (c *controller) BoneQueues() map[string]*BoneQueue {
	return c.queues
}

func (c *controller) ClearQueues() {
	for _, q := range c.queues {
		q.reset()
	}
}

func (c *controller) Stop() {
	c.state = StateStopped
	c.queue = nil
	c.current = nil
	c.request = nil
	c.needsPop = false
	clear(c.executed)
}

func (c *controller) SetAnimation(req *clip.RawAnimation) {
	if req.Empty() {
		c.Stop()
		return
	}
	if !c.needsReload && req.Equal(c.request) {
		return
	}

	queue, err := clip.Resolve(c.library, req)
	c.request = clip.CopyOf(req)
	c.needsReload = false
	if err != nil {
		c.logger.Printf("[controller] %s: rejected %s: %v", c.name, req, err)
		c.state = StateStopped
		c.queue = nil
		c.current = nil
		c.needsPop = false
		return
	}

	c.queue = queue
	c.shouldResetTick = true
	c.needsPop = true
	c.state = StateTransitioning
}

// adjustTick converts host time into the controller's local tick. A pending reset makes the
// current time the new origin and yields tick 0.
func (c *controller) adjustTick(seekTime float64) float64 {
	if !c.shouldResetTick {
		return c.speed() * math.Max(seekTime-c.tickOffset, 0)
	}
	if c.state != StateStopped {
		c.tickOffset = seekTime
	}
	c.shouldResetTick = false
	return 0
}

func (c *controller) Process(seekTime float64, frame *FrameContext, g bone.Graph, snapshots *snapshot.Store, crash bool) error {
	c.resetQueues(g)
	tick := c.adjustTick(seekTime)

	if c.state == StateTransitioning && !c.needsPop && tick >= c.transitionLength {
		c.shouldResetTick = true
		c.state = StateRunning
		tick = c.adjustTick(seekTime)
	}

	verdict := Continue()
	if c.handler != nil {
		verdict = c.handler.Handle(frame)
	}
	if verdict.Request != nil {
		c.SetAnimation(verdict.Request)
	}
	if verdict.Play == PlayStateStop || (c.current == nil && len(c.queue) == 0) {
		c.state = StateStopped
		return nil
	}

	switch {
	case c.shouldResetTick:
		tick = c.adjustTick(seekTime)
	case c.needsPop && c.state != StateTransitioning:
		// A request accepted on a halted tick still has to start
		c.state = StateTransitioning
		c.shouldResetTick = true
		tick = c.adjustTick(seekTime)
	case c.current == nil && c.state != StateTransitioning:
		c.state = StateTransitioning
		c.needsPop = true
		c.shouldResetTick = true
		tick = c.adjustTick(seekTime)
	case c.state == StateStopped:
		c.state = StateRunning
	}

	if c.state == StateTransitioning {
		return c.processTransition(tick, seekTime, frame, g, snapshots, crash)
	}
	return c.processRunning(tick, seekTime, frame, g, crash)
}

// processTransition starts the next queued clip if one is pending and emits blend points from the
// saved snapshots toward the clip's first frame.
func (c *controller) processTransition(tick, seekTime float64, frame *FrameContext, g bone.Graph, snapshots *snapshot.Store, crash bool) error {
	if c.needsPop || c.justStarting {
		c.needsPop = false
		clear(c.executed)
		if len(c.queue) == 0 {
			c.current = nil
			return nil
		}
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.current = &next
		c.saveSnapshots(next.Clip, snapshots)

		if c.transitionLength <= 0 {
			c.state = StateRunning
			c.shouldResetTick = true
			return c.processRunning(c.adjustTick(seekTime), seekTime, frame, g, crash)
		}
	}
	if c.current == nil {
		return nil
	}

	ctx := queryOf(frame)
	ctx.AnimTime = 0
	cl := c.current.Clip
	for i := range cl.Tracks {
		track := &cl.Tracks[i]
		q, ok := c.queues[track.Bone]
		if !ok {
			if crash {
				return &MissingBoneError{Bone: track.Bone, Clip: cl.Name}
			}
			continue
		}
		initial, _ := g.InitialSnapshot(track.Bone)
		from, ok := c.saved[track.Bone]
		if !ok {
			from = snapshot.New(track.Bone, initial)
		}

		for _, ch := range common.Channels {
			stack := track.Channel(ch)
			if stack.Empty() {
				continue
			}
			start := from.Value(ch)
			if ch == common.ChannelRotation {
				start = start.Sub(initial.Rotation)
			}
			var pts [3]sampler.Point
			for _, a := range common.Axes {
				end := restValue(ch, a, initial)
				if p, ok := sampler.PointAt(stack.Axis(a), 0, ch == common.ChannelRotation, a, ctx); ok {
					end = sampler.Lerp(p, c.easing)
				}
				pts[a] = sampler.Point{
					CurrentTick: tick,
					Length:      c.transitionLength,
					Start:       start[a],
					End:         end,
				}
			}
			q.Push(ch, pts[0], pts[1], pts[2])
		}
	}
	return nil
}

// processRunning samples the current clip at tick and handles reaching the clip's end.
func (c *controller) processRunning(tick, seekTime float64, frame *FrameContext, g bone.Graph, crash bool) error {
	if c.current == nil {
		return nil
	}
	cl := c.current.Clip

	if tick >= cl.Length {
		action := c.current.Loop.Decide(cl)
		if action == clip.ActionHold {
			tick = cl.Length
		} else {
			c.fireEvents(cl, cl.Length, true, frame)
			clear(c.executed)

			switch {
			case action == clip.ActionRestart:
				c.shouldResetTick = true
				tick = c.adjustTick(seekTime)
			case len(c.queue) == 0:
				c.state = StateStopped
				c.current = nil
				return nil
			case c.transitionLength <= 0:
				next := c.queue[0]
				c.queue = c.queue[1:]
				c.current = &next
				cl = next.Clip
				c.shouldResetTick = true
				tick = c.adjustTick(seekTime)
			default:
				// Hold the finished clip's last frame for this tick; the blend starts on the next one.
				c.state = StateTransitioning
				c.needsPop = true
				c.shouldResetTick = true
				return c.sample(cl, cl.Length, frame, crash)
			}
		}
	}

	if err := c.sample(cl, tick, frame, crash); err != nil {
		return err
	}
	c.fireEvents(cl, tick, false, frame)
	return nil
}

// sample queues one point triple per driven channel of every track of cl at tick.
func (c *controller) sample(cl *clip.Clip, tick float64, frame *FrameContext, crash bool) error {
	ctx := queryOf(frame)
	ctx.AnimTime = tick
	for i := range cl.Tracks {
		track := &cl.Tracks[i]
		q, ok := c.queues[track.Bone]
		if !ok {
			if crash {
				return &MissingBoneError{Bone: track.Bone, Clip: cl.Name}
			}
			continue
		}
		for _, ch := range common.Channels {
			stack := track.Channel(ch)
			if stack.Empty() {
				continue
			}
			var pts [3]sampler.Point
			for _, a := range common.Axes {
				p, ok := sampler.PointAt(stack.Axis(a), tick, ch == common.ChannelRotation, a, ctx)
				if !ok {
					p = sampler.Point{End: c.restOf(track.Bone, ch, a)}
				}
				pts[a] = p
			}
			q.Push(ch, pts[0], pts[1], pts[2])
		}
	}
	return nil
}

// fireEvents dispatches every unfired marker whose start time has been reached: sounds, then
// particles, then custom instructions. With exact set the handler sees the marker's own start time.
func (c *controller) fireEvents(cl *clip.Clip, tick float64, exact bool, frame *FrameContext) {
	at := func(start float64) float64 {
		if exact {
			return start
		}
		return tick
	}
	for i, ev := range cl.Sounds {
		if !c.arm(eventSound, i, ev.StartTime, tick) {
			continue
		}
		if c.soundHandler != nil {
			c.soundHandler(SoundKeyframe{Tick: at(ev.StartTime), Controller: c, Frame: frame, Data: ev})
		}
	}
	for i, ev := range cl.Particles {
		if !c.arm(eventParticle, i, ev.StartTime, tick) {
			continue
		}
		if c.particleHandler != nil {
			c.particleHandler(ParticleKeyframe{Tick: at(ev.StartTime), Controller: c, Frame: frame, Data: ev})
		}
	}
	for i, ev := range cl.Customs {
		if !c.arm(eventCustom, i, ev.StartTime, tick) {
			continue
		}
		if c.customHandler != nil {
			c.customHandler(CustomKeyframe{Tick: at(ev.StartTime), Controller: c, Frame: frame, Data: ev})
		}
	}
}

// arm records a marker as fired and reports whether it should fire now.
func (c *controller) arm(kind eventKind, index int, start, tick float64) bool {
	key := eventKey{kind: kind, index: index}
	if _, done := c.executed[key]; done || tick < start {
		return false
	}
	c.executed[key] = struct{}{}
	return true
}

// resetQueues empties every bone queue, rebuilding the set when the graph changed.
func (c *controller) resetQueues(g bone.Graph) {
	if g == nil {
		return
	}
	if v := g.Version(); g != c.restGraph || v != c.queueVersion {
		c.queues = make(map[string]*BoneQueue, g.Len())
		for _, name := range g.Names() {
			c.queues[name] = newBoneQueue(name)
		}
		c.queueVersion = v
		c.restGraph = g
		return
	}
	c.ClearQueues()
}

// saveSnapshots copies the instance snapshots of every bone cl drives as the blend sources.
func (c *controller) saveSnapshots(cl *clip.Clip, snapshots *snapshot.Store) {
	clear(c.saved)
	if snapshots == nil {
		return
	}
	for _, track := range cl.Tracks {
		if s, ok := snapshots.Get(track.Bone); ok {
			c.saved[track.Bone] = s.Copy()
		}
	}
}

func (c *controller) restOf(name string, ch common.Channel, a common.Axis) float64 {
	if c.restGraph == nil {
		return restValue(ch, a, bone.InitialSnapshot{})
	}
	initial, _ := c.restGraph.InitialSnapshot(name)
	return restValue(ch, a, initial)
}

// restValue is the value an undriven axis holds: no rotation offset, rest position, rest scale.
func restValue(ch common.Channel, a common.Axis, initial bone.InitialSnapshot) float64 {
	switch ch {
	case common.ChannelRotation:
		return 0
	case common.ChannelPosition:
		return initial.Position[a]
	default:
		return initial.Scale[a]
	}
}

func queryOf(frame *FrameContext) *expression.Context {
	if frame == nil || frame.Query == nil {
		return &expression.Context{}
	}
	return frame.Query
}
