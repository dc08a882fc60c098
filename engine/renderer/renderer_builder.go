package renderer

import (
	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-morph/engine/config"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/pipeline"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPipeline pre-registers a single Pipeline in the renderer's pipeline cache under the given key.
// The pipeline must already hold its GPU objects; use RegisterPipelines to create them.
//
// Parameters:
//   - key: the unique identifier for the pipeline
//   - p: the Pipeline to cache
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline option to a renderer
func WithPipeline(key string, p pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pipelineCache[key] = p
	}
}

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the fallback adapter option to a renderer
func WithForceFallbackAdapter(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithPowerPreference sets the adapter power preference.
//
// Parameters:
//   - pref: the PowerPreference to request the adapter with
//
// Returns:
//   - RendererBuilderOption: a function that applies the power preference option to a renderer
func WithPowerPreference(pref PowerPreference) RendererBuilderOption {
	return func(r *renderer) {
		r.powerPreference = pref
	}
}

// WithLogger replaces the renderer's logger.
func WithLogger(l *log.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.log = l
	}
}

// WithConfig applies the compute section of the engine configuration.
//
// Parameters:
//   - cfg: the compute configuration
//
// Returns:
//   - RendererBuilderOption: a function that applies the configuration to a renderer
func WithConfig(cfg config.ComputeConfig) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = cfg.ForceFallbackAdapter
	}
}
