// Package processor advances every controller of an instance once per tick, applies their output
// to the instance's live pose and relaxes abandoned bones back to rest.
package processor

import (
	"log"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/Carmen-Shannon/oxy-anim/engine/instance"
	"github.com/Carmen-Shannon/oxy-anim/engine/sampler"
	"github.com/Carmen-Shannon/oxy-anim/engine/snapshot"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// DefaultResetDuration is the number of ticks an abandoned channel takes to return to rest.
const DefaultResetDuration = 1.0

// ErrMissingSnapshot is returned, when crashing on missing bones is enabled, for controller output
// targeting a bone the instance has no live state for.
var ErrMissingSnapshot = errors.New("no snapshot for bone")

// processor is the implementation of the Processor interface.
type processor struct {
	graph         bone.Graph
	library       atomic.Pointer[libraryRef]
	resetDuration float64
	crash         bool
	logger        *log.Logger

	generation atomic.Uint64
}

type libraryRef struct {
	lib clip.Library
}

// Processor drives the instances of one model.
//
// The bone graph and clip library are shared by every instance the processor ticks; all
// per-instance state lives in instance.Data. Tick may be called concurrently for different
// instances, never for the same one.
type Processor interface {
	clip.Library

	// Graph returns the model's bone graph.
	//
	// Returns:
	//   - bone.Graph: the bone graph
	Graph() bone.Graph

	// Library returns the clip library this processor resolves requests against.
	//
	// Returns:
	//   - clip.Library: the library, nil if none is set
	Library() clip.Library

	// SetLibrary swaps the clip library. Controllers pick the new clips up on their next request
	// change or reload.
	//
	// Parameters:
	//   - lib: the clip library
	SetLibrary(lib clip.Library)

	// ResetDuration returns the default relax duration in ticks.
	//
	// Returns:
	//   - float64: the reset duration
	ResetDuration() float64

	// CrashOnMissingBone reports whether missing bones abort a tick.
	//
	// Returns:
	//   - bool: true if missing bones are fatal
	CrashOnMissingBone() bool

	// Tick advances one instance to seekTime.
	//
	// Parameters:
	//   - d: the instance's animation state
	//   - a: the animated object, may be nil
	//   - seekTime: the host time of this tick
	//
	// Returns:
	//   - error: a missing bone or snapshot failure when crashing on missing bones is enabled
	Tick(d instance.Data, a instance.Animatable, seekTime float64) error

	// MarkReload makes every controller of every instance re-resolve its request on its next tick.
	MarkReload()

	// ReloadGeneration returns the number of reloads marked so far.
	//
	// Returns:
	//   - uint64: the reload generation
	ReloadGeneration() uint64
}

var _ Processor = &processor{}

// NewProcessor creates a Processor for the model described by g.
//
// Parameters:
//   - g: the model's bone graph
//   - options: variadic list of ProcessorBuilderOption functions to configure the Processor
//
// Returns:
//   - Processor: the new processor
func NewProcessor(g bone.Graph, options ...ProcessorBuilderOption) Processor {
	if g == nil {
		panic("processor: nil bone graph")
	}
	p := &processor{
		graph:         g,
		resetDuration: DefaultResetDuration,
		logger:        log.Default(),
	}
	p.library.Store(&libraryRef{})
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *processor) Graph() bone.Graph {
	return p.graph
}

func (p *processor) Library() clip.Library {
	return p.library.Load().lib
}

func (p *processor) SetLibrary(lib clip.Library) {
	p.library.Store(&libraryRef{lib: lib})
}

// Clip resolves a clip name through the current library.
func (p *processor) Clip(name string) (*clip.Clip, bool) {
	lib := p.Library()
	if lib == nil {
		return nil, false
	}
	return lib.Clip(name)
}

func (p *processor) ResetDuration() float64 {
	return p.resetDuration
}

func (p *processor) CrashOnMissingBone() bool {
	return p.crash
}

func (p *processor) MarkReload() {
	gen := p.generation.Add(1)
	p.logger.Printf("[processor] %s: reload %d", p.graph.Name(), gen)
}

func (p *processor) ReloadGeneration() uint64 {
	return p.generation.Load()
}

func (p *processor) Tick(d instance.Data, a instance.Animatable, seekTime float64) error {
	if d == nil {
		return errors.New("processor: nil instance data")
	}
	g := p.graph
	pose := d.SyncPose(g)
	store := d.Snapshots()
	store.Sync(g)
	p.applyReload(d)

	query := d.Query()
	query.LifeTime = seekTime
	if qs, ok := a.(instance.QuerySource); ok {
		qs.ApplyQueries(query, seekTime)
	}

	// Controllers and their handlers run without the pose lock so a handler may read the pose
	pose.ResetFrame()

	first := d.FirstTick()
	frame := &controller.FrameContext{
		InstanceID: d.ID(),
		Time:       seekTime,
		Query:      query,
		Extra:      d.Extra(),
	}
	for _, c := range d.Controllers() {
		c.SetJustStarting(first)
		frame.Controller = c
		if err := c.Process(seekTime, frame, g, store, p.crash); err != nil {
			return errors.Wrapf(err, "instance %d: controller %s", d.ID(), c.Name())
		}
		pose.Lock()
		err := p.apply(c, pose, store)
		pose.Unlock()
		if err != nil {
			return errors.Wrapf(err, "instance %d: controller %s", d.ID(), c.Name())
		}
	}

	var reset float64
	if a != nil {
		reset = a.BoneResetTime()
	}
	pose.Lock()
	p.relax(pose, store, seekTime, common.Coalesce(reset, p.resetDuration))
	pose.Unlock()

	d.SetUpdatedAt(seekTime)
	d.FinishFirstTick(seekTime)
	return nil
}

// applyReload replays each controller's request once per reload generation.
func (p *processor) applyReload(d instance.Data) {
	gen := p.generation.Load()
	seen, ok := d.ReloadGeneration()
	if ok && seen == gen {
		return
	}
	d.SetReloadGeneration(gen)
	if !ok {
		return
	}
	for _, c := range d.Controllers() {
		c.MarkNeedsReload()
		c.ClearQueues()
		if req := c.CurrentRequest(); req != nil {
			c.SetAnimation(req)
		}
	}
}

// apply writes one controller's queued points onto the pose. Rotation is added to the rest
// rotation; position and scale are absolute.
func (p *processor) apply(c controller.Controller, pose *bone.Pose, store *snapshot.Store) error {
	override := c.EasingOverride()
	for name, q := range c.BoneQueues() {
		if q.Empty() {
			continue
		}
		state, ok := pose.BoneLocked(name)
		snap, sok := store.Get(name)
		if !ok || !sok {
			if p.crash {
				return errors.Wrapf(ErrMissingSnapshot, "bone %q", name)
			}
			continue
		}
		initial, _ := p.graph.InitialSnapshot(name)
		for _, ch := range common.Channels {
			pts, ok := q.Pop(ch)
			if !ok {
				continue
			}
			var v mgl64.Vec3
			for _, a := range common.Axes {
				v[a] = sampler.Lerp(pts[a], override)
			}
			if ch == common.ChannelRotation {
				v = v.Add(initial.Rotation)
			}
			state.Set(ch, v)
			state.MarkChanged(ch)
			snap.Update(ch, v)
			snap.Start(ch)
		}
	}
	return nil
}

// relax eases every channel no controller wrote this tick from its snapshot back to rest.
func (p *processor) relax(pose *bone.Pose, store *snapshot.Store, seekTime, duration float64) {
	for _, name := range p.graph.Names() {
		state, ok := pose.BoneLocked(name)
		snap, sok := store.Get(name)
		if !ok || !sok {
			continue
		}
		initial, _ := p.graph.InitialSnapshot(name)
		for _, ch := range common.Channels {
			if state.Changed(ch) {
				continue
			}
			if snap.InProgress(ch) {
				snap.Stop(ch, seekTime)
			}
			rest := initial.Value(ch)
			pct := common.Progress(seekTime-snap.LastReset(ch), duration)
			if pct >= 1 {
				snap.Update(ch, rest)
				state.Set(ch, rest)
				continue
			}
			state.Set(ch, common.LerpVec3(snap.Value(ch), rest, pct))
		}
	}
}
