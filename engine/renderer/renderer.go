package renderer

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-morph/engine/logger"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/pipeline"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend
	log         *log.Logger

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	powerPreference      PowerPreference
}

// Renderer is a headless GPU compute renderer.
//
// This is a high-level API designed to simplify compute tasks into a streamlined and idiomatic flow.
// The Renderer manages a cache of compute pipelines and creates the buffers and bind groups that
// feed them. A frame is one command encoder: BeginComputeFrame, any number of DispatchCompute calls,
// then EndComputeFrame submits the work. ReadBuffer waits for submitted work before copying results
// back to the host. The Renderer also implements a backend which allows for multiple backend API
// implementations to exist.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves a copy of the pipeline cache.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines creates the GPU compute pipeline objects for one or more pipelines via the
	// backend, then caches them by PipelineKey. Pipelines whose keys are already registered are
	// skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// InitBindGroup creates GPU buffers for every binding of a pipeline's bind group and a bind
	// group over them, then stores both on the given BindGroupProvider. Buffers already present on
	// the provider are reused. Buffer usage and size can be overridden per binding; runtime-sized
	// storage arrays need a size override since their layout only carries the element stride.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created resources on
	//   - pipelineKey: the registered compute Pipeline the bind group is created for
	//   - group: the @group index to create
	//   - bufferUsageOverrides: additional buffer usage flags to OR into the derived usage, keyed by binding index (nil safe)
	//   - bufferSizeOverrides: custom buffer sizes to use instead of MinBindingSize, keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if the pipeline is unknown or bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, pipelineKey string, group int, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// Each BufferWrite targets a specific buffer on a BindGroupProvider at a given binding and offset.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	//
	// Returns:
	//   - error: ErrBufferOutOfBounds if a write does not fit its buffer. Writes before it are queued.
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginComputeFrame creates a single command encoder for batching all compute dispatches
	// within a frame into one GPU submission. Must be paired with EndComputeFrame after all
	// DispatchCompute calls for the frame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// DispatchCompute looks up the cached compute Pipeline by key, then encodes a compute pass
	// within the current batched compute frame started by BeginComputeFrame.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached compute Pipeline to use
	//   - computeProvider: the BindGroupProvider whose BindGroup will be set on the compute pass
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: ErrPipelineNotFound or ErrNoComputeFrame
	DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// EndComputeFrame finishes the batched compute command encoder and submits the resulting
	// command buffer to the GPU queue. Must be called after BeginComputeFrame and all
	// DispatchCompute calls for the frame.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndComputeFrame() error

	// ReadBuffer copies a buffer back to the host. It blocks until all previously submitted
	// work has completed, so results of the last EndComputeFrame are visible.
	//
	// Parameters:
	//   - provider: the BindGroupProvider holding the buffer
	//   - binding: the binding index of the buffer
	//   - size: the number of bytes to read from offset 0, or 0 for the whole buffer
	//
	// Returns:
	//   - []byte: a host copy of the buffer contents
	//   - error: ErrBufferNotFound or ErrReadback
	ReadBuffer(provider bind_group_provider.BindGroupProvider, binding int, size uint64) ([]byte, error)

	// Limits returns the limits the device was created with.
	//
	// Returns:
	//   - wgpu.Limits: the device limits
	Limits() wgpu.Limits

	// Release releases every cached pipeline and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new headless Renderer with the specified backend type.
// No window or surface is involved; the backend requests an adapter and device for compute only.
//
// Parameters:
//   - backendType: the type of backend to use (e.g., WGPU)
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: ErrNoAdapter or a device creation error
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Component("renderer")
	}

	var err error
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(r.forceFallbackAdapter, r.powerPreference)
	}
	if err != nil {
		r.log.Error("renderer unavailable", "fallback", r.forceFallbackAdapter, "err", err)
		return nil, err
	}
	r.log.Debug("renderer ready", "fallback", r.forceFallbackAdapter, "max_storage_binding", r.backend.Limits().MaxStorageBufferBindingSize)
	return r, nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, p := range r.pipelineCache {
		out[k] = p
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.backend.RegisterComputePipeline(p); err != nil {
			return fmt.Errorf("register pipeline %q: %w", key, err)
		}
		r.pipelineCache[key] = p
		r.log.Debug("pipeline registered", "key", key, "entry", p.Shader().EntryPoint())
	}
	return nil
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, pipelineKey string, group int, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %q", ErrPipelineNotFound, pipelineKey)
	}
	return r.backend.InitBindGroup(provider, p.BindGroupLayout(group), p.Shader().BindGroupLayoutDescriptor(group), bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %q", ErrPipelineNotFound, pipelineKey)
	}
	return r.backend.DispatchCompute(p, computeProvider, workGroupCount)
}

func (r *renderer) EndComputeFrame() error {
	return r.backend.EndComputeFrame()
}

func (r *renderer) ReadBuffer(provider bind_group_provider.BindGroupProvider, binding int, size uint64) ([]byte, error) {
	return r.backend.ReadBuffer(provider, binding, size)
}

func (r *renderer) Limits() wgpu.Limits {
	return r.backend.Limits()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.backend.Release()
}
