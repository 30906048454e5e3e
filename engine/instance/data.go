// Package instance holds the per-instance animation state a host object owns: its controllers,
// snapshots, live pose and evaluation context.
package instance

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/Carmen-Shannon/oxy-anim/engine/expression"
	"github.com/Carmen-Shannon/oxy-anim/engine/snapshot"
)

// data is the implementation of the Data interface.
type data struct {
	id uint64

	mu          sync.RWMutex
	controllers []controller.Controller
	index       map[string]int

	library   clip.Library
	snapshots *snapshot.Store
	pose      *bone.Pose
	query     *expression.Context
	extra     map[string]any

	firstTick     bool
	lastUpdate    float64
	firstTickTime float64

	reloadSeen bool
	reloadGen  uint64
}

// Data is the animation state of one animated instance.
//
// Data is passed explicitly to every processor call; there is no global registry keyed by
// instance id. A Data is ticked by one goroutine at a time. Controllers and Pose may be read
// concurrently between ticks.
type Data interface {
	// ID returns the host's identifier for the instance.
	//
	// Returns:
	//   - uint64: the instance id
	ID() uint64

	// AddController attaches a controller. Controllers run in the order they were added.
	// Adding a controller whose name is already present replaces it in place.
	// A controller without a library is given the instance's library.
	//
	// Parameters:
	//   - c: the controller to attach
	AddController(c controller.Controller)

	// Controller returns the controller with the given name.
	//
	// Parameters:
	//   - name: the controller name
	//
	// Returns:
	//   - controller.Controller: the controller, or nil
	//   - bool: true if a controller with that name is attached
	Controller(name string) (controller.Controller, bool)

	// Controllers returns the attached controllers in insertion order.
	//
	// Returns:
	//   - []controller.Controller: a copy of the controller list
	Controllers() []controller.Controller

	// RemoveController detaches the named controller.
	//
	// Parameters:
	//   - name: the controller name
	//
	// Returns:
	//   - bool: true if a controller was removed
	RemoveController(name string) bool

	// Library returns the clip library new controllers are bound to.
	//
	// Returns:
	//   - clip.Library: the library, or nil
	Library() clip.Library

	// SetLibrary sets the clip library and binds it to every attached controller lacking one.
	//
	// Parameters:
	//   - lib: the clip library
	SetLibrary(lib clip.Library)

	// Snapshots returns the instance's snapshot store.
	//
	// Returns:
	//   - *snapshot.Store: the snapshot store
	Snapshots() *snapshot.Store

	// ClearSnapshotCache discards every snapshot. They are recreated at rest on the next tick.
	ClearSnapshotCache()

	// Pose returns the instance's live bone transforms. Nil until SyncPose has been called.
	//
	// Returns:
	//   - *bone.Pose: the live pose
	Pose() *bone.Pose

	// SyncPose creates or refreshes the live pose against the given graph.
	//
	// Parameters:
	//   - g: the model's bone graph
	//
	// Returns:
	//   - *bone.Pose: the live pose
	SyncPose(g bone.Graph) *bone.Pose

	// Query returns the evaluation context expression keyframes read from.
	//
	// Returns:
	//   - *expression.Context: the query context
	Query() *expression.Context

	// Extra returns host-defined per-frame values handed to state handlers.
	//
	// Returns:
	//   - map[string]any: the extra values
	Extra() map[string]any

	// SetExtra stores a host-defined per-frame value.
	//
	// Parameters:
	//   - key: the value name
	//   - v: the value
	SetExtra(key string, v any)

	// FirstTick reports whether the instance has not finished its first tick yet.
	//
	// Returns:
	//   - bool: true before the first tick completes
	FirstTick() bool

	// FinishFirstTick records the end of the first tick at the given time.
	//
	// Parameters:
	//   - t: the host time of the first tick
	FinishFirstTick(t float64)

	// StartedAt returns the host time of the first tick, -1 before it.
	//
	// Returns:
	//   - float64: the first tick time
	StartedAt() float64

	// UpdatedAt returns the host time of the last tick.
	//
	// Returns:
	//   - float64: the last tick time
	UpdatedAt() float64

	// SetUpdatedAt records the host time of the current tick.
	//
	// Parameters:
	//   - t: the host time
	SetUpdatedAt(t float64)

	// ReloadGeneration returns the processor reload generation this instance last observed.
	//
	// Returns:
	//   - uint64: the observed generation
	//   - bool: false if no generation has been observed yet
	ReloadGeneration() (uint64, bool)

	// SetReloadGeneration records the processor reload generation this instance has applied.
	//
	// Parameters:
	//   - gen: the generation
	SetReloadGeneration(gen uint64)
}

var _ Data = &data{}

// NewData creates the animation state for one instance.
//
// Parameters:
//   - options: variadic list of DataBuilderOption functions to configure the Data
//
// Returns:
//   - Data: the new instance data
func NewData(options ...DataBuilderOption) Data {
	d := &data{
		index:         make(map[string]int),
		snapshots:     snapshot.NewStore(),
		query:         expression.NewContext(),
		extra:         make(map[string]any),
		firstTick:     true,
		firstTickTime: -1,
	}
	for _, opt := range options {
		opt(d)
	}
	if d.library != nil {
		d.SetLibrary(d.library)
	}
	return d
}

func (d *data) ID() uint64 {
	return d.id
}

func (d *data) AddController(c controller.Controller) {
	if c == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.Library() == nil && d.library != nil {
		c.SetLibrary(d.library)
	}
	if i, ok := d.index[c.Name()]; ok {
		d.controllers[i] = c
		return
	}
	d.index[c.Name()] = len(d.controllers)
	d.controllers = append(d.controllers, c)
}

func (d *data) Controller(name string) (controller.Controller, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.controllers[i], true
}

func (d *data) Controllers() []controller.Controller {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]controller.Controller, len(d.controllers))
	copy(out, d.controllers)
	return out
}

func (d *data) RemoveController(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.index[name]
	if !ok {
		return false
	}
	d.controllers = append(d.controllers[:i], d.controllers[i+1:]...)
	delete(d.index, name)
	for j := i; j < len(d.controllers); j++ {
		d.index[d.controllers[j].Name()] = j
	}
	return true
}

func (d *data) Library() clip.Library {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.library
}

func (d *data) SetLibrary(lib clip.Library) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.library = lib
	for _, c := range d.controllers {
		if c.Library() == nil {
			c.SetLibrary(lib)
		}
	}
}

func (d *data) Snapshots() *snapshot.Store {
	return d.snapshots
}

func (d *data) ClearSnapshotCache() {
	d.snapshots.Clear()
}

func (d *data) Pose() *bone.Pose {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pose
}

func (d *data) SyncPose(g bone.Graph) *bone.Pose {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pose == nil {
		d.pose = bone.NewPose(g)
		return d.pose
	}
	d.pose.Sync(g)
	return d.pose
}

func (d *data) Query() *expression.Context {
	return d.query
}

func (d *data) Extra() map[string]any {
	return d.extra
}

func (d *data) SetExtra(key string, v any) {
	d.extra[key] = v
}

func (d *data) FirstTick() bool {
	return d.firstTick
}

func (d *data) FinishFirstTick(t float64) {
	if !d.firstTick {
		return
	}
	d.firstTick = false
	d.firstTickTime = t
}

func (d *data) StartedAt() float64 {
	return d.firstTickTime
}

func (d *data) UpdatedAt() float64 {
	return d.lastUpdate
}

func (d *data) SetUpdatedAt(t float64) {
	d.lastUpdate = t
}

func (d *data) ReloadGeneration() (uint64, bool) {
	return d.reloadGen, d.reloadSeen
}

func (d *data) SetReloadGeneration(gen uint64) {
	d.reloadGen = gen
	d.reloadSeen = true
}
