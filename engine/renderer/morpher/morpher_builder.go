package morpher

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-morph/engine/config"
	"github.com/Carmen-Shannon/oxy-morph/engine/kernels"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer"
)

// MorpherBuilderOption is a functional option for configuring a Morpher during construction.
type MorpherBuilderOption func(*morpher)

// WithRenderer is an option builder that sets the Renderer a GPU backend creates its resources on.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - MorpherBuilderOption: a function that applies the renderer option to a morpher
func WithRenderer(r renderer.Renderer) MorpherBuilderOption {
	return func(m *morpher) {
		m.renderer = r
	}
}

// WithKernelModule is an option builder that sets the kernel a GPU backend registers when the
// renderer does not yet hold the blend pipeline. Without it the process-wide kernel is resolved.
//
// Parameters:
//   - km: the resolved kernel module
//
// Returns:
//   - MorpherBuilderOption: a function that applies the kernel option to a morpher
func WithKernelModule(km *kernels.KernelModule) MorpherBuilderOption {
	return func(m *morpher) {
		m.kernel = km
	}
}

// WithPipelineKey is an option builder that overrides the renderer pipeline key of the GPU backend.
//
// Parameters:
//   - key: the pipeline key
//
// Returns:
//   - MorpherBuilderOption: a function that applies the pipeline key option to a morpher
func WithPipelineKey(key string) MorpherBuilderOption {
	return func(m *morpher) {
		m.pipelineKey = key
	}
}

// WithComputePool is an option builder that shares a worker pool with the CPU backend.
// A shared pool is never stopped by the Morpher.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - MorpherBuilderOption: a function that applies the pool option to a morpher
func WithComputePool(pool worker.DynamicWorkerPool) MorpherBuilderOption {
	return func(m *morpher) {
		m.pool = pool
	}
}

// WithChunkSize is an option builder that sets how many vertices one CPU task blends.
//
// Parameters:
//   - size: vertices per task
//
// Returns:
//   - MorpherBuilderOption: a function that applies the chunk size option to a morpher
func WithChunkSize(size int) MorpherBuilderOption {
	return func(m *morpher) {
		m.chunkSize = size
	}
}

// WithAttributes is an option builder that selects which attributes are blended. Position is
// always blended and attributes the mesh does not carry are dropped.
//
// Parameters:
//   - attrs: the attribute mask
//
// Returns:
//   - MorpherBuilderOption: a function that applies the attributes option to a morpher
func WithAttributes(attrs morph.Attributes) MorpherBuilderOption {
	return func(m *morpher) {
		m.attrs = attrs
		m.attrsSet = true
	}
}

// WithDebugNormals is an option builder that blends normals even when the attribute mask
// excludes them, so debug shading can display them.
//
// Parameters:
//   - enabled: true to force normal blending
//
// Returns:
//   - MorpherBuilderOption: a function that applies the debug normals option to a morpher
func WithDebugNormals(enabled bool) MorpherBuilderOption {
	return func(m *morpher) {
		m.debugNormals = enabled
	}
}

// WithLogger replaces the morpher's logger.
func WithLogger(l *log.Logger) MorpherBuilderOption {
	return func(m *morpher) {
		m.log = l
	}
}

// WithConfig applies the compute section of the engine configuration to the CPU backend.
//
// Parameters:
//   - cfg: the compute configuration
//
// Returns:
//   - MorpherBuilderOption: a function that applies the configuration to a morpher
func WithConfig(cfg config.ComputeConfig) MorpherBuilderOption {
	return func(m *morpher) {
		m.workers = cfg.WorkerCount()
		if cfg.ChunkSize > 0 {
			m.chunkSize = cfg.ChunkSize
		}
	}
}
