package scene

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-morph/engine/logger"
	"github.com/Carmen-Shannon/oxy-morph/engine/model"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/morpher"
)

// Stats describes the work done by one Scene.Update.
type Stats struct {
	Morphers  int           // registered morphers
	Animating int           // morphers with a weight animation still running
	Blended   int           // morphers blended this update
	Vertices  int           // vertices blended this update
	Duration  time.Duration // wall time spent in Update
}

// Scene manages a registry of Morphers keyed by UUID and blends the dirty ones once per update.
// CPU morphers share the scene's compute pool; GPU morphers created through the scene share its
// Renderer and are batched into a single compute frame.
// Scenes can be hot-swapped via the Active flag.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently updated by the engine.
	Active() bool

	// SetActive sets whether this scene is updated by the engine.
	SetActive(active bool)

	// Renderer returns the scene's renderer, or nil for a CPU-only scene.
	Renderer() renderer.Renderer

	// ComputePool returns the worker pool shared by the scene's CPU morphers.
	ComputePool() worker.DynamicWorkerPool

	// Count returns the number of registered Morphers.
	Count() int

	// NewMorpher creates a Morpher for the mesh wired to the scene's compute pool and renderer,
	// then registers it.
	//
	// Parameters:
	//   - backendType: BackendTypeCPU or BackendTypeGPU
	//   - mesh: the morph mesh to blend
	//   - options: additional morpher options, applied after the scene's own
	//
	// Returns:
	//   - uuid.UUID: the assigned ID
	//   - morpher.Morpher: the created Morpher
	//   - error: an error if the mesh is invalid or backend creation fails
	NewMorpher(backendType morpher.MorpherBackendType, mesh model.MorphMesh, options ...morpher.MorpherBuilderOption) (uuid.UUID, morpher.Morpher, error)

	// Add registers an existing Morpher. GPU morphers must use the scene's Renderer.
	//
	// Parameters:
	//   - m: the Morpher to add
	//
	// Returns:
	//   - uuid.UUID: the assigned ID
	Add(m morpher.Morpher) uuid.UUID

	// Get retrieves a Morpher by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the morpher's ID
	//
	// Returns:
	//   - morpher.Morpher: the morpher or nil
	Get(id uuid.UUID) morpher.Morpher

	// Remove unregisters and releases a Morpher. Unknown IDs are ignored.
	//
	// Parameters:
	//   - id: the morpher's ID
	Remove(id uuid.UUID)

	// Morphers returns a copy of the registry.
	Morphers() map[uuid.UUID]morpher.Morpher

	// Clear removes and releases every Morpher.
	Clear()

	// Update advances every weight animation by deltaTime, then blends every dirty Morpher.
	// CPU blends fan out over the compute pool behind one barrier; GPU blends share one compute
	// frame followed by readback. A failing morpher does not stop the others.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last update in seconds
	//
	// Returns:
	//   - Stats: the work done
	//   - error: every blend error joined, or nil
	Update(deltaTime float32) (Stats, error)

	// Release releases every Morpher and stops the compute pool.
	Release()
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	registry map[uuid.UUID]morpher.Morpher

	r   renderer.Renderer
	log *log.Logger

	chunkSize      int
	morpherOptions []morpher.MorpherBuilderOption

	// Pre-allocated slices reused each update to avoid per-frame allocations.
	writePool []bind_group_provider.BufferWrite
	cpuPool   []morpher.Morpher
	gpuPool   []morpher.Morpher

	// computePool manages a bounded set of reusable goroutines shared by the CPU morphers.
	// Workers persist across updates, avoiding per-frame goroutine spawn/teardown overhead.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
	ownsPool       bool
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		registry:       make(map[uuid.UUID]morpher.Morpher),
		computeWorkers: 1,
	}

	for _, option := range options {
		option(s)
	}
	if s.log == nil {
		s.log = logger.Component("scene")
	}

	// Initialize the compute pool after options so WithComputeWorkers can override the default.
	if s.computePool == nil {
		s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
		s.ownsPool = true
	}
	s.log.Debug("scene created", "name", name, "workers", s.computeWorkers, "gpu", s.r != nil)
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

func (s *scene) Renderer() renderer.Renderer {
	return s.r
}

func (s *scene) ComputePool() worker.DynamicWorkerPool {
	return s.computePool
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) NewMorpher(backendType morpher.MorpherBackendType, mesh model.MorphMesh, options ...morpher.MorpherBuilderOption) (uuid.UUID, morpher.Morpher, error) {
	opts := []morpher.MorpherBuilderOption{
		morpher.WithComputePool(s.computePool),
		morpher.WithLogger(s.log.WithPrefix(s.log.GetPrefix() + "/morpher")),
	}
	if s.r != nil {
		opts = append(opts, morpher.WithRenderer(s.r))
	}
	if s.chunkSize > 0 {
		opts = append(opts, morpher.WithChunkSize(s.chunkSize))
	}
	opts = append(opts, s.morpherOptions...)
	m, err := morpher.NewMorpher(backendType, mesh, append(opts, options...)...)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("scene %q: %w", s.Name(), err)
	}
	return s.Add(m), m, nil
}

func (s *scene) Add(m morpher.Morpher) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	s.registry[id] = m
	s.mu.Unlock()
	s.log.Debug("morpher added", "id", id, "mesh", m.Mesh().Name(), "backend", m.BackendType(), "vertices", m.VertexCount())
	return id
}

func (s *scene) Get(id uuid.UUID) morpher.Morpher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uuid.UUID) {
	s.mu.Lock()
	m, exists := s.registry[id]
	delete(s.registry, id)
	s.mu.Unlock()

	if exists {
		m.Release()
		s.log.Debug("morpher removed", "id", id)
	}
}

func (s *scene) Morphers() map[uuid.UUID]morpher.Morpher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]morpher.Morpher, len(s.registry))
	for id, m := range s.registry {
		out[id] = m
	}
	return out
}

func (s *scene) Clear() {
	s.mu.Lock()
	registry := s.registry
	s.registry = make(map[uuid.UUID]morpher.Morpher)
	s.mu.Unlock()

	for _, m := range registry {
		m.Release()
	}
}

func (s *scene) Update(deltaTime float32) (Stats, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Morphers: len(s.registry)}

	// Advance animations and split the dirty morphers by backend.
	cpu := s.cpuPool[:0]
	gpu := s.gpuPool[:0]
	for _, m := range s.registry {
		m.Update(deltaTime)
		if m.Animating() {
			stats.Animating++
		}
		if !m.Dirty() {
			continue
		}
		if m.BackendType() == morpher.BackendTypeGPU {
			gpu = append(gpu, m)
		} else {
			cpu = append(cpu, m)
		}
		stats.Blended++
		stats.Vertices += m.VertexCount()
	}
	s.cpuPool = cpu
	s.gpuPool = gpu

	// Phase 1: CPU morphers submit their chunks to the shared pool.
	// A WaitGroup provides the barrier since pool.Wait() blocks until workers idle-exit.
	if len(cpu) > 0 {
		var wg sync.WaitGroup
		for _, m := range cpu {
			m.Submit(&wg)
		}
		wg.Wait()
	}

	// Phase 2: GPU morphers share one compute frame.
	err := s.blendGPU(gpu)

	stats.Duration = time.Since(start)
	return stats, err
}

// blendGPU runs the dirty GPU morphers. Caller must hold s.mu write lock.
//
// Parameters:
//   - gpu: the dirty GPU morphers
//
// Returns:
//   - error: every failure joined, or nil
func (s *scene) blendGPU(gpu []morpher.Morpher) error {
	if len(gpu) == 0 {
		return nil
	}

	// Without a shared renderer each morpher runs its own frame.
	if s.r == nil {
		var errs []error
		for _, m := range gpu {
			if err := m.Blend(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	// Coalesce every staged write into one submission.
	allWrites := s.writePool[:0]
	for _, m := range gpu {
		m.PrepareFrame()
		allWrites = append(allWrites, m.StagedWriteData()...)
	}
	s.writePool = allWrites
	if err := s.r.WriteBuffers(allWrites); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}

	if err := s.r.BeginComputeFrame(); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}
	var errs []error
	dispatched := make([]morpher.Morpher, 0, len(gpu))
	for _, m := range gpu {
		if err := s.r.DispatchCompute(m.PipelineKey(), m.ComputeBindGroupProvider(), m.WorkgroupCount()); err != nil {
			errs = append(errs, fmt.Errorf("mesh %q: %w", m.Mesh().Name(), err))
			continue
		}
		dispatched = append(dispatched, m)
	}
	if err := s.r.EndComputeFrame(); err != nil {
		return errors.Join(append(errs, fmt.Errorf("scene %q: %w", s.name, err))...)
	}

	for _, m := range dispatched {
		if err := m.ReadBack(); err != nil {
			errs = append(errs, fmt.Errorf("mesh %q: %w", m.Mesh().Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *scene) Release() {
	s.Clear()
	if s.ownsPool {
		s.computePool.Stop()
	}
}
