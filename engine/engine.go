package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-morph/engine/config"
	"github.com/Carmen-Shannon/oxy-morph/engine/kernels"
	"github.com/Carmen-Shannon/oxy-morph/engine/loader"
	"github.com/Carmen-Shannon/oxy-morph/engine/logger"
	"github.com/Carmen-Shannon/oxy-morph/engine/profiler"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/morpher"
	"github.com/Carmen-Shannon/oxy-morph/engine/scene"
)

// engine implements the Engine interface.
// Coordinates the tick loop and owns the resources shared by its scenes.
type engine struct {
	mu *sync.RWMutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	cfg     config.Config
	backend morpher.MorpherBackendType
	log     *log.Logger

	resolver     kernels.Resolver
	kernel       *kernels.KernelModule
	r            renderer.Renderer
	ownsRenderer bool
	loader       loader.Loader
	computePool  worker.DynamicWorkerPool

	profiler         *profiler.Profiler
	profilingEnabled bool
	profileInterval  time.Duration

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	scenes map[int]scene.Scene
}

// Engine is the main entry point for headless morph blending.
// It resolves the blend kernel, opens the renderer when the GPU backend is configured, and runs a
// fixed-rate tick loop that updates every active scene in ascending key order.
type Engine interface {
	// Config returns the configuration the engine was built with.
	Config() config.Config

	// Backend returns the blend backend scenes created by NewScene use.
	Backend() morpher.MorpherBackendType

	// Resolver returns the kernel module resolver.
	Resolver() kernels.Resolver

	// Kernel returns the resolved blend kernel, or nil for the CPU backend.
	Kernel() *kernels.KernelModule

	// Renderer returns the GPU renderer, or nil for the CPU backend.
	Renderer() renderer.Renderer

	// Loader returns the model loader.
	Loader() loader.Loader

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - tps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(tps float64)

	// SetTickCallback registers the function called at the start of each tick, before scenes update.
	// Use this to drive weights from application logic.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// NewScene creates an active scene wired to the engine's renderer, compute pool and kernel,
	// and registers it at key.
	//
	// Parameters:
	//   - key: the z-index determining update order (lower updates first)
	//   - name: the scene name
	//   - options: additional scene options
	//
	// Returns:
	//   - scene.Scene: the new scene
	NewScene(key int, name string, options ...scene.SceneBuilderOption) scene.Scene

	// AddScene registers a scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index determining update order (lower updates first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key. The scene is not released.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Step runs one tick synchronously: the tick callback, then Update on every active scene.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	//
	// Returns:
	//   - scene.Stats: the summed scene stats
	//   - error: every scene error joined, or nil
	Step(deltaTime float32) (scene.Stats, error)

	// Run starts the tick loop and blocks until ctx is done or Quit is called. Blend errors are
	// logged and the loop continues. A tick already in progress runs to completion.
	//
	// Parameters:
	//   - ctx: the context controlling the loop
	//
	// Returns:
	//   - error: ctx.Err() when the context ended the loop, nil after Quit
	Run(ctx context.Context) error

	// Quit signals the tick loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Release releases every registered scene, the compute pool and an owned renderer.
	Release()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (config, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the backend name is unknown, the kernel cannot be resolved for the GPU
//     backend, or no GPU adapter is available
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		mu:              &sync.RWMutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		cfg:             config.Default(),
		engineTickRate:  time.Second / 60,
		profileInterval: time.Second,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Component("engine")
	}

	backend, err := morpher.ParseBackendType(e.cfg.Compute.Backend)
	if err != nil {
		return nil, err
	}
	e.backend = backend

	if e.resolver == nil {
		e.resolver = kernels.SharedResolver(kernels.WithConfig(e.cfg.Kernels))
	}
	if backend == morpher.BackendTypeGPU {
		if e.kernel, err = e.resolver.Resolve(); err != nil {
			e.log.Error("blend kernel unavailable", "bundle", e.resolver.Bundle(), "err", err)
			return nil, err
		}
		if e.r == nil {
			if e.r, err = renderer.NewRenderer(renderer.BackendTypeWGPU, renderer.WithConfig(e.cfg.Compute)); err != nil {
				return nil, fmt.Errorf("engine: %w", err)
			}
			e.ownsRenderer = true
		}
	}

	if e.loader == nil {
		e.loader = loader.NewLoader(loader.BackendTypeGLTF)
	}
	e.computePool = worker.NewDynamicWorkerPool(e.cfg.Compute.WorkerCount(), 256, 1*time.Second)
	e.profiler = profiler.NewProfiler(e.profileInterval, nil)

	e.log.Info("engine ready", "backend", backend, "workers", e.cfg.Compute.WorkerCount(), "tick", e.engineTickRate)
	return e, nil
}

func (e *engine) Config() config.Config {
	return e.cfg
}

func (e *engine) Backend() morpher.MorpherBackendType {
	return e.backend
}

func (e *engine) Resolver() kernels.Resolver {
	return e.resolver
}

func (e *engine) Kernel() *kernels.KernelModule {
	return e.kernel
}

func (e *engine) Renderer() renderer.Renderer {
	return e.r
}

func (e *engine) Loader() loader.Loader {
	return e.loader
}

func (e *engine) NewScene(key int, name string, options ...scene.SceneBuilderOption) scene.Scene {
	opts := []scene.SceneBuilderOption{
		scene.WithActive(true),
		scene.WithConfig(e.cfg.Compute),
		scene.WithComputePool(e.computePool),
	}
	if e.r != nil {
		opts = append(opts, scene.WithRenderer(e.r))
	}
	if e.kernel != nil {
		opts = append(opts, scene.WithMorpherOptions(morpher.WithKernelModule(e.kernel)))
	}
	s := scene.NewScene(name, append(opts, options...)...)
	e.AddScene(key, s)
	return s
}

func (e *engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.running = true
	tickRate := e.engineTickRate
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.quitChannel:
			return nil
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if _, err := e.Step(dt); err != nil {
				e.log.Error("tick failed", "err", err)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

func (e *engine) Step(deltaTime float32) (scene.Stats, error) {
	if e.tickCallback != nil {
		e.tickCallback(deltaTime)
	}

	// Update all active scenes in ascending z-index order.
	e.mu.RLock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	active := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	profiling := e.profilingEnabled
	e.mu.RUnlock()

	var total scene.Stats
	var errs []error
	for _, s := range active {
		stats, err := s.Update(deltaTime)
		if err != nil {
			errs = append(errs, err)
		}
		total.Morphers += stats.Morphers
		total.Animating += stats.Animating
		total.Blended += stats.Blended
		total.Vertices += stats.Vertices
		total.Duration += stats.Duration
	}

	if profiling {
		e.profiler.Tick(total.Blended, total.Vertices)
	}
	return total, errors.Join(errs...)
}

// Quit signals the tick loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Release() {
	e.Quit()
	e.mu.Lock()
	scenes := e.scenes
	e.scenes = make(map[int]scene.Scene)
	e.mu.Unlock()

	for _, s := range scenes {
		s.Release()
	}
	e.computePool.Stop()
	if e.ownsRenderer && e.r != nil {
		e.r.Release()
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(tps float64) {
	if tps <= 0 {
		tps = 60
	}
	newRate := time.Duration(float64(time.Second) / tps)

	e.mu.Lock()
	running := e.running
	if !running {
		e.engineTickRate = newRate
	}
	e.mu.Unlock()
	if !running {
		return
	}

	// Non-blocking send - if channel is full, replace the pending value
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
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
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
