package morpher

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-morph/engine/config"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/bind_group_provider"
)

// MorpherBackendType identifies the type of blend backend used by a Morpher.
type MorpherBackendType int

const (
	// BackendTypeCPU blends on the host, splitting the vertex range into chunks that run on a
	// worker pool.
	BackendTypeCPU MorpherBackendType = iota

	// BackendTypeGPU blends with the morph blend compute kernel and reads the result back.
	BackendTypeGPU
)

// String returns the configuration name of the backend type.
func (t MorpherBackendType) String() string {
	switch t {
	case BackendTypeGPU:
		return config.BackendGPU
	default:
		return config.BackendCPU
	}
}

// ParseBackendType maps a configuration backend name to a MorpherBackendType.
//
// Parameters:
//   - name: config.BackendCPU or config.BackendGPU
//
// Returns:
//   - MorpherBackendType: the matching backend type
//   - error: an error if the name is unknown
func ParseBackendType(name string) (MorpherBackendType, error) {
	switch name {
	case config.BackendCPU:
		return BackendTypeCPU, nil
	case config.BackendGPU:
		return BackendTypeGPU, nil
	}
	return BackendTypeCPU, fmt.Errorf("morpher: unknown backend %q", name)
}

// baseMorpherBackend is the part of the backend contract every implementation provides.
type baseMorpherBackend interface {
	// Init uploads or captures the immutable blend inputs. It is called once, before any blend.
	//
	// Parameters:
	//   - base: the base mesh vertices
	//   - deltas: the packed target-major deltas, len(base)*morph.MaxTargetCount entries
	//
	// Returns:
	//   - error: an error if resources could not be created
	Init(base []morph.Vertex, deltas []morph.TargetDelta) error

	// Blend runs one complete blend into dst and returns once dst holds the result.
	//
	// Parameters:
	//   - w: the target weights
	//   - attrs: the attributes to blend
	//   - dst: the output vertices, len(base) entries
	//
	// Returns:
	//   - error: an error if the blend could not run
	Blend(w morph.WeightVector, attrs morph.Attributes, dst []morph.Vertex) error

	// Release frees every resource the backend owns.
	Release()
}

// cpuMorpherBackend defines the batching surface of the host blend backend.
type cpuMorpherBackend interface {
	// Submit queues the blend of every vertex chunk without waiting. Each queued chunk calls
	// wg.Done when it finishes, so one WaitGroup can act as the barrier for many morphers.
	//
	// Parameters:
	//   - w: the target weights
	//   - attrs: the attributes to blend
	//   - dst: the output vertices, len(base) entries
	//   - wg: the frame barrier
	Submit(w morph.WeightVector, attrs morph.Attributes, dst []morph.Vertex, wg *sync.WaitGroup)
}

// gpuMorpherBackend defines the batching surface of the compute kernel backend.
// The caller owns the compute frame: it drains StagedWriteData into the renderer, dispatches
// PipelineKey with ComputeBindGroupProvider and WorkgroupCount inside a compute frame, and calls
// ReadBack once the frame has been submitted.
type gpuMorpherBackend interface {
	// PrepareFrame stages the per-dispatch uniform and weight writes.
	//
	// Parameters:
	//   - w: the target weights
	//   - attrs: the attributes to blend
	PrepareFrame(w morph.WeightVector, attrs morph.Attributes)

	// StagedWriteData returns and clears the pending GPU buffer writes.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the pending buffer writes
	StagedWriteData() []bind_group_provider.BufferWrite

	// ComputeBindGroupProvider returns the provider holding the kernel's buffers and bind group.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the compute provider
	ComputeBindGroupProvider() bind_group_provider.BindGroupProvider

	// PipelineKey returns the key of the compute pipeline the backend dispatches.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// WorkgroupCount returns the dispatch size covering every vertex.
	//
	// Returns:
	//   - [3]uint32: the workgroup counts in x, y and z
	WorkgroupCount() [3]uint32

	// ReadBack copies the output buffer of the last submitted dispatch into dst.
	//
	// Parameters:
	//   - dst: the output vertices
	//
	// Returns:
	//   - error: a readback error from the renderer
	ReadBack(dst []morph.Vertex) error
}

// MorpherBackend is the union interface that all blend backends must implement.
// It embeds both cpuMorpherBackend and gpuMorpherBackend, requiring concrete
// implementations to provide the full method set. Methods that do not apply to a given
// backend type are implemented as no-ops.
type MorpherBackend interface {
	baseMorpherBackend
	cpuMorpherBackend
	gpuMorpherBackend
}
