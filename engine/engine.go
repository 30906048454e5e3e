// Package engine runs scenes on a fixed-rate headless tick loop.
package engine

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/pkg/errors"
)

// DefaultTickRate is the loop rate in ticks per second when none is configured.
const DefaultTickRate = 20.0

// engine implements the Engine interface.
type engine struct {
	mu sync.RWMutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(seekTime float64, deltaTime float32)
	errorHandler   func(err error)
	logger         *log.Logger

	// ticks counts completed steps; the next step runs at seek time ticks.
	ticks atomic.Uint64

	scenes map[int]scene.Scene
}

// Engine is the main entry point for a headless animation host.
// Every tick it advances each active scene, in ascending key order, to the current seek time.
// Seek time is measured in ticks and starts at 0.
type Engine interface {
	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// If the engine is running, the change takes effect immediately.
	//
	// Parameters:
	//   - tps: target ticks per second (defaults to DefaultTickRate if <= 0)
	SetTickRate(tps float64)

	// SetTickCallback registers the function called after every step, once all scenes have ticked.
	// Use this for game logic that reacts to the new poses.
	//
	// Parameters:
	//   - callback: receives the seek time just processed and the wall-clock delta in seconds
	SetTickCallback(callback func(seekTime float64, deltaTime float32))

	// SetErrorHandler registers the function receiving scene tick failures while running.
	// Failures are logged when no handler is set.
	//
	// Parameters:
	//   - handler: the error receiver
	SetErrorHandler(handler func(err error))

	// AddScene registers a scene at the given key. Scenes tick in ascending key order.
	//
	// Parameters:
	//   - key: the ordering key
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given key.
	//
	// Parameters:
	//   - key: the key of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the key of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by their ordering key.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// SeekTime returns the seek time the next step will run at.
	//
	// Returns:
	//   - float64: the seek time in ticks
	SeekTime() float64

	// Step runs a single tick synchronously, regardless of the tick rate.
	//
	// Returns:
	//   - error: the first scene failure of this tick
	Step() error

	// MarkReload forwards a reload to every registered scene.
	MarkReload()

	// Run starts the tick loop and blocks until Quit is called or ctx is done.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//
	// Returns:
	//   - error: ctx.Err() when cancelled, nil after Quit
	Run(ctx context.Context) error

	// Quit signals the tick loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		engineTickRate:  tickInterval(DefaultTickRate),
		logger:          log.Default(),
	}

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}
	return e
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

func (e *engine) SetTickRate(tps float64) {
	newRate := tickInterval(tps)

	if e.running.Load() {
		// Non-blocking send - if a change is already pending, replace it
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
		return
	}
	e.mu.Lock()
	e.engineTickRate = newRate
	e.mu.Unlock()
}

func (e *engine) SetTickCallback(callback func(seekTime float64, deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetErrorHandler(handler func(err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errorHandler = handler
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[int]scene.Scene, len(e.scenes))
	for k, s := range e.scenes {
		out[k] = s
	}
	return out
}

func (e *engine) SeekTime() float64 {
	return float64(e.ticks.Load())
}

func (e *engine) Step() error {
	return e.step(0)
}

func (e *engine) step(dt float32) error {
	seek := e.SeekTime()

	e.mu.RLock()
	keys := common.SortedKeys(e.scenes)
	active := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	callback := e.tickCallback
	e.mu.RUnlock()

	var firstErr error
	objects := 0
	for _, s := range active {
		objects += s.Count()
		if err := s.Tick(seek); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.ticks.Add(1)

	if callback != nil {
		callback(seek, dt)
	}
	if e.profilingEnabled.Load() {
		e.profiler.Tick(objects)
	}
	if firstErr != nil {
		return errors.Wrapf(firstErr, "engine: tick %v", seek)
	}
	return nil
}

func (e *engine) MarkReload() {
	for _, s := range e.Scenes() {
		s.MarkReload()
	}
}

func (e *engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine: already running")
	}
	defer e.running.Store(false)

	e.mu.RLock()
	rate := e.engineTickRate
	e.mu.RUnlock()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()
	e.logger.Printf("[engine] running at %v per tick", rate)

	lastTick := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.logger.Printf("[engine] stopped at tick %v: %v", e.SeekTime(), ctx.Err())
			return ctx.Err()
		case <-e.quitChannel:
			e.logger.Printf("[engine] quit at tick %v", e.SeekTime())
			return nil
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if err := e.step(dt); err != nil {
				e.handleError(err)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

// Quit signals the tick loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) handleError(err error) {
	e.mu.RLock()
	handler := e.errorHandler
	e.mu.RUnlock()
	if handler != nil {
		handler(err)
		return
	}
	e.logger.Printf("[engine] %v", err)
}

func tickInterval(tps float64) time.Duration {
	if tps <= 0 {
		tps = DefaultTickRate
	}
	return time.Duration(float64(time.Second) / tps)
}
