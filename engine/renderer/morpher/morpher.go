package morpher

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-morph/engine/kernels"
	"github.com/Carmen-Shannon/oxy-morph/engine/logger"
	"github.com/Carmen-Shannon/oxy-morph/engine/model"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/bind_group_provider"
)

// Errors returned by the Morpher.
var (
	ErrNoRenderer    = errors.New("morpher: GPU backend requires a renderer")
	ErrUnknownTarget = errors.New("morpher: unknown morph target")
)

// morpher is the implementation of the Morpher interface.
type morpher struct {
	mu *sync.Mutex

	backendType MorpherBackendType
	backend     MorpherBackend
	mesh        model.MorphMesh
	log         *log.Logger

	attrs        morph.Attributes
	attrsSet     bool
	debugNormals bool

	weights  morph.WeightVector
	animator *morph.Animator
	dirty    bool

	output []morph.Vertex

	// Pre-creation config collected from builder options
	renderer    renderer.Renderer
	kernel      *kernels.KernelModule
	pipelineKey string
	pool        worker.DynamicWorkerPool
	workers     int
	chunkSize   int
}

// Morpher blends the morph targets of one mesh with a set of animated weights.
//
// The Morpher validates and packs its mesh once on creation, then keeps the current weights and any
// running weight animation. Every blend computes base + Σ weight[i]*delta[i] for each vertex into the
// output slice returned by Output. Blending is delegated to a MorpherBackend, either the host worker
// pool or the GPU compute kernel.
//
// Blend runs a complete blend on its own. The batching methods (Submit, PrepareFrame,
// StagedWriteData, ComputeBindGroupProvider, PipelineKey, WorkgroupCount, ReadBack) let a scene
// blend many morphers behind one barrier; the ones that do not apply to the backend are no-ops.
type Morpher interface {
	// Mesh returns the mesh this Morpher deforms.
	//
	// Returns:
	//   - model.MorphMesh: the mesh
	Mesh() model.MorphMesh

	// BackendType returns the type of backend this Morpher is using.
	//
	// Returns:
	//   - MorpherBackendType: BackendTypeCPU or BackendTypeGPU
	BackendType() MorpherBackendType

	// VertexCount returns the number of blended vertices.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// Attributes returns the attributes every blend writes.
	//
	// Returns:
	//   - morph.Attributes: the blended attribute mask
	Attributes() morph.Attributes

	// Weights returns the weights the next blend uses.
	//
	// Returns:
	//   - morph.WeightVector: the current weights
	Weights() morph.WeightVector

	// SetTargetWeights replaces the target weights, immediately when anim has no duration or
	// animated from the current weights otherwise. A running animation is replaced.
	// The active count of w is kept, capped at the mesh's target count.
	//
	// Parameters:
	//   - w: the new weights, in target slot order
	//   - anim: the transition to the new weights
	SetTargetWeights(w morph.WeightVector, anim morph.Animation)

	// SetNamedWeights sets weights by target name. Targets not named keep their current weight.
	//
	// Parameters:
	//   - weights: the weights keyed by target name
	//   - anim: the transition to the new weights
	//
	// Returns:
	//   - error: ErrUnknownTarget if a name does not match a target; no weight is changed
	SetNamedWeights(weights map[string]float32, anim morph.Animation) error

	// Animating reports whether a weight animation is in progress.
	//
	// Returns:
	//   - bool: true while an animation has not delivered its final weights
	Animating() bool

	// Update advances the weight animation by deltaTime.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	//
	// Returns:
	//   - bool: true if the weights changed and the output needs a new blend
	Update(deltaTime float32) bool

	// Dirty reports whether the output is stale with respect to the current weights.
	//
	// Returns:
	//   - bool: true if a blend is pending
	Dirty() bool

	// Blend runs a complete blend with the current weights and waits for the result.
	//
	// Returns:
	//   - error: a backend error; the dirty flag stays set
	Blend() error

	// Output returns the blended vertices. The slice is overwritten by the next blend.
	//
	// Returns:
	//   - []morph.Vertex: the blended vertices
	Output() []morph.Vertex

	// Submit queues a host blend of the current weights on the worker pool and clears the
	// dirty flag. Each chunk calls wg.Done when finished. No-op on GPU backends.
	//
	// Parameters:
	//   - wg: the frame barrier shared by every morpher of the frame
	Submit(wg *sync.WaitGroup)

	// PrepareFrame stages the uniform and weight writes of the current weights.
	// No-op on CPU backends.
	PrepareFrame()

	// StagedWriteData returns and clears the pending GPU buffer writes.
	// The caller should submit them via Renderer.WriteBuffers before dispatching.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the pending buffer writes
	StagedWriteData() []bind_group_provider.BufferWrite

	// ComputeBindGroupProvider returns the provider for the blend dispatch, nil on CPU backends.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the compute provider
	ComputeBindGroupProvider() bind_group_provider.BindGroupProvider

	// PipelineKey returns the compute pipeline to dispatch, empty on CPU backends.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// WorkgroupCount returns the dispatch size covering every vertex.
	//
	// Returns:
	//   - [3]uint32: the workgroup counts in x, y and z
	WorkgroupCount() [3]uint32

	// ReadBack copies the result of the last submitted dispatch into the output and clears the
	// dirty flag. No-op on CPU backends.
	//
	// Returns:
	//   - error: a readback error
	ReadBack() error

	// Release frees all resources held by the backend.
	Release()
}

var _ Morpher = &morpher{}

// NewMorpher creates a Morpher for a mesh with the specified backend type.
// The mesh is validated and its targets packed before the backend is created, so every
// host-side geometry error surfaces here.
//
// Parameters:
//   - backendType: the type of blend backend to use (BackendTypeCPU or BackendTypeGPU)
//   - mesh: the mesh to deform
//   - options: variadic list of MorpherBuilderOption functions to configure the Morpher
//
// Returns:
//   - Morpher: the new Morpher
//   - error: a mesh validation error, ErrNoRenderer, or a backend initialization error
func NewMorpher(backendType MorpherBackendType, mesh model.MorphMesh, options ...MorpherBuilderOption) (Morpher, error) {
	if mesh == nil {
		return nil, morph.ErrMissingBaseMesh
	}
	m := &morpher{
		mu:          &sync.Mutex{},
		backendType: backendType,
		mesh:        mesh,
		workers:     1,
		chunkSize:   DefaultChunkSize,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Component("morpher")
	}

	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("morpher %q: %w", mesh.Name(), err)
	}
	base := mesh.BaseVertices()
	deltas, err := morph.PackDeltas(len(base), mesh.Targets())
	if err != nil {
		return nil, fmt.Errorf("morpher %q: %w", mesh.Name(), err)
	}

	available := mesh.Attributes()
	if !m.attrsSet {
		m.attrs = available & (morph.AttributePosition | morph.AttributeNormal)
	}
	m.attrs = (m.attrs & available) | morph.AttributePosition
	if m.debugNormals {
		m.attrs |= morph.AttributeNormal
	}

	switch backendType {
	case BackendTypeGPU:
		m.backend = newGPUMorpherBackend(m.renderer, m.kernel, m.pipelineKey, mesh.Name()+" Morph")
	case BackendTypeCPU:
		fallthrough
	default:
		m.backend = newCPUMorpherBackend(m.pool, m.workers, m.chunkSize)
	}
	if err := m.backend.Init(base, deltas); err != nil {
		m.backend.Release()
		m.log.Error("backend init failed", "mesh", mesh.Name(), "backend", backendType, "err", err)
		return nil, fmt.Errorf("morpher %q: %w", mesh.Name(), err)
	}

	m.weights = mesh.DefaultWeights()
	m.output = append([]morph.Vertex(nil), base...)
	m.dirty = true
	m.log.Debug("morpher ready", "mesh", mesh.Name(), "backend", backendType, "vertices", len(base), "targets", mesh.TargetCount(), "attributes", uint32(m.attrs))
	return m, nil
}

func (m *morpher) Mesh() model.MorphMesh {
	return m.mesh
}

func (m *morpher) BackendType() MorpherBackendType {
	return m.backendType
}

func (m *morpher) VertexCount() int {
	return m.mesh.VertexCount()
}

func (m *morpher) Attributes() morph.Attributes {
	return m.attrs
}

func (m *morpher) Weights() morph.WeightVector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.weights
}

func (m *morpher) SetTargetWeights(w morph.WeightVector, anim morph.Animation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setTargetWeights(w, anim)
}

func (m *morpher) setTargetWeights(w morph.WeightVector, anim morph.Animation) {
	w = w.WithActive(min(w.Active, m.mesh.TargetCount()))
	if anim.Duration <= 0 {
		m.animator = nil
		if w != m.weights {
			m.weights = w
			m.dirty = true
		}
		return
	}
	m.animator = morph.NewAnimator(m.weights, w, anim)
}

func (m *morpher) SetNamedWeights(weights map[string]float32, anim morph.Animation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.weights
	if m.animator != nil {
		w = m.animator.Target()
	}
	for name, value := range weights {
		slot := m.mesh.TargetIndex(name)
		if slot < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownTarget, name)
		}
		w.Weights[slot] = value
		w.Active = max(w.Active, slot+1)
	}
	m.setTargetWeights(w, anim)
	return nil
}

func (m *morpher) Animating() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.animator != nil
}

func (m *morpher) Update(deltaTime float32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.animator == nil {
		return false
	}

	w, state, ok := m.animator.Update(deltaTime)
	if !ok || state == morph.AnimationCompleted {
		m.animator = nil
	}
	if !ok || w == m.weights {
		return false
	}
	m.weights = w
	m.dirty = true
	return true
}

func (m *morpher) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

func (m *morpher) Blend() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.backend.Blend(m.weights, m.attrs, m.output); err != nil {
		return fmt.Errorf("morpher %q: %w", m.mesh.Name(), err)
	}
	m.dirty = false
	return nil
}

func (m *morpher) Output() []morph.Vertex {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.output
}

func (m *morpher) Submit(wg *sync.WaitGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backendType != BackendTypeCPU {
		return
	}
	m.backend.Submit(m.weights, m.attrs, m.output, wg)
	m.dirty = false
}

func (m *morpher) PrepareFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backend.PrepareFrame(m.weights, m.attrs)
}

func (m *morpher) StagedWriteData() []bind_group_provider.BufferWrite {
	return m.backend.StagedWriteData()
}

func (m *morpher) ComputeBindGroupProvider() bind_group_provider.BindGroupProvider {
	return m.backend.ComputeBindGroupProvider()
}

func (m *morpher) PipelineKey() string {
	return m.backend.PipelineKey()
}

func (m *morpher) WorkgroupCount() [3]uint32 {
	return m.backend.WorkgroupCount()
}

func (m *morpher) ReadBack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backendType != BackendTypeGPU {
		return nil
	}
	if err := m.backend.ReadBack(m.output); err != nil {
		return fmt.Errorf("morpher %q: %w", m.mesh.Name(), err)
	}
	m.dirty = false
	return nil
}

func (m *morpher) Release() {
	m.backend.Release()
}
