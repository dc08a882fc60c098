package engine

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-morph/engine/config"
	"github.com/Carmen-Shannon/oxy-morph/engine/kernels"
	"github.com/Carmen-Shannon/oxy-morph/engine/loader"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-morph/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig applies a full configuration: backend, workers, kernel lookup, tick rate and
// profiling. Options after it override the matching fields.
//
// Parameters:
//   - cfg: the configuration, expected to have passed Validate
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
		WithTickRate(float64(cfg.Engine.TickRate))(e)
		e.profilingEnabled = cfg.Engine.Profiling
		if cfg.Engine.ProfileInterval > 0 {
			e.profileInterval = time.Duration(cfg.Engine.ProfileInterval * float64(time.Second))
		}
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - tps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(tps float64) EngineBuilderOption {
	return func(e *engine) {
		if tps <= 0 {
			tps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / tps)
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
// Scenes are updated in ascending key order.
//
// Parameters:
//   - key: the z-index determining update order (lower updates first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithResolver replaces the shared kernel resolver the config selects.
func WithResolver(r kernels.Resolver) EngineBuilderOption {
	return func(e *engine) {
		e.resolver = r
	}
}

// WithRenderer supplies an existing renderer for the GPU backend. The engine does not release it.
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.r = r
	}
}

// WithLoader replaces the default glTF loader.
func WithLoader(l loader.Loader) EngineBuilderOption {
	return func(e *engine) {
		e.loader = l
	}
}

// WithLogger replaces the engine's logger.
func WithLogger(l *log.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.log = l
	}
}
