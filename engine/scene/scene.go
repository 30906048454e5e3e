// Package scene groups animated objects and ticks them together.
package scene

import (
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
	"github.com/Carmen-Shannon/oxy-anim/engine/instance"
	"github.com/Carmen-Shannon/oxy-anim/engine/processor"
	"github.com/pkg/errors"
)

// Scene manages a collection of animated objects, each paired with the Processor for its model
// and its own instance.Data. Objects are ticked in parallel; a single object is never ticked by
// two workers at once.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently ticked by the engine.
	Active() bool

	// SetActive sets whether this scene is ticked by the engine.
	SetActive(active bool)

	// Add registers an object driven by p. The object's instance data is bound to p's clip
	// library and RegisterControllers is called before Add returns.
	//
	// Panics if a or p is nil.
	//
	// Parameters:
	//   - a: the object to animate
	//   - p: the processor for the object's model
	//
	// Returns:
	//   - uint64: the assigned object ID
	Add(a instance.Animatable, p processor.Processor) uint64

	// Get retrieves an object by ID. Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - instance.Animatable: the object or nil
	Get(id uint64) instance.Animatable

	// Data retrieves an object's animation state. Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - instance.Data: the animation state or nil
	Data(id uint64) instance.Data

	// Processor retrieves the processor driving an object. Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - processor.Processor: the processor or nil
	Processor(id uint64) processor.Processor

	// Remove removes an object by ID.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - bool: true if the object existed
	Remove(id uint64) bool

	// Clear removes all objects from the scene.
	Clear()

	// Count returns the number of objects in the scene.
	Count() int

	// IDs returns every object ID in ascending order.
	IDs() []uint64

	// Tick advances every object to seekTime. Failing objects do not stop the others.
	//
	// Parameters:
	//   - seekTime: the host time of this tick
	//
	// Returns:
	//   - error: the first object failure, annotated with the failure count
	Tick(seekTime float64) error

	// ReadPose hands a copy of an object's current bone transforms to fn. The pose is never
	// observed half written.
	//
	// Parameters:
	//   - id: the object's unique ID
	//   - fn: receives the transforms in bone registration order
	//
	// Returns:
	//   - bool: false if the object does not exist
	ReadPose(id uint64, fn func(pose []bone.Transform)) bool

	// MarkReload forwards a reload to every distinct processor in the scene.
	MarkReload()
}

type object struct {
	a instance.Animatable
	p processor.Processor
	d instance.Data
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	registry map[uint64]*object
	nextID   uint64

	logger *log.Logger

	// tickPool persists across ticks so each tick only pays for task submission.
	tickPool    worker.DynamicWorkerPool
	tickWorkers int
}

var _ Scene = &scene{}

// NewScene creates an empty Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:          &sync.RWMutex{},
		name:        name,
		active:      true,
		registry:    make(map[uint64]*object),
		nextID:      1,
		logger:      log.Default(),
		tickWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}

	// Queue size of 256 leaves headroom for scenes with many objects.
	s.tickPool = worker.NewDynamicWorkerPool(s.tickWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Add(a instance.Animatable, p processor.Processor) uint64 {
	if a == nil {
		panic("scene: Add requires a non-nil Animatable")
	}
	if p == nil {
		panic("scene: Add requires a non-nil Processor")
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	d := instance.NewData(instance.WithID(id), instance.WithLibrary(p))
	a.RegisterControllers(d)

	s.mu.Lock()
	s.registry[id] = &object{a: a, p: p, d: d}
	s.mu.Unlock()
	return id
}

func (s *scene) Get(id uint64) instance.Animatable {
	if o := s.object(id); o != nil {
		return o.a
	}
	return nil
}

func (s *scene) Data(id uint64) instance.Data {
	if o := s.object(id); o != nil {
		return o.d
	}
	return nil
}

func (s *scene) Processor(id uint64) processor.Processor {
	if o := s.object(id); o != nil {
		return o.p
	}
	return nil
}

func (s *scene) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registry[id]; !exists {
		return false
	}
	delete(s.registry, id)
	return true
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = make(map[uint64]*object)
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) IDs() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return common.SortedKeys(s.registry)
}

func (s *scene) Tick(seekTime float64) error {
	s.mu.RLock()
	objects := make([]*object, 0, len(s.registry))
	for _, o := range s.registry {
		objects = append(objects, o)
	}
	s.mu.RUnlock()

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
		failed   int
	)
	// A WaitGroup gives a per-tick barrier; the pool's own Wait blocks until workers idle-exit.
	for i, o := range objects {
		wg.Add(1)
		oCap := o
		s.tickPool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				err := oCap.p.Tick(oCap.d, oCap.a, seekTime)
				if err != nil {
					errMu.Lock()
					failed++
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
				}
				return nil, err
			},
		})
	}
	wg.Wait()

	if firstErr != nil {
		s.logger.Printf("[scene] %s: %d of %d objects failed at %v: %v", s.Name(), failed, len(objects), seekTime, firstErr)
		return errors.Wrapf(firstErr, "scene %s: %d of %d objects failed", s.Name(), failed, len(objects))
	}
	return nil
}

func (s *scene) ReadPose(id uint64, fn func(pose []bone.Transform)) bool {
	o := s.object(id)
	if o == nil {
		return false
	}
	fn(o.d.Pose().Read())
	return true
}

func (s *scene) MarkReload() {
	s.mu.RLock()
	seen := make(map[processor.Processor]bool)
	var ps []processor.Processor
	for _, o := range s.registry {
		if !seen[o.p] {
			seen[o.p] = true
			ps = append(ps, o.p)
		}
	}
	s.mu.RUnlock()

	for _, p := range ps {
		p.MarkReload()
	}
}

func (s *scene) object(id uint64) *object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}
