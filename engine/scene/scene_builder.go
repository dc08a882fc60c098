package scene

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-morph/engine/config"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/morpher"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithRenderer attaches the renderer GPU morphers created through the scene share.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) SceneBuilderOption {
	return func(s *scene) {
		s.r = r
	}
}

// WithMorphers registers initial morphers with fresh IDs.
//
// Parameters:
//   - morphers: the morphers to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMorphers(morphers ...morpher.Morpher) SceneBuilderOption {
	return func(s *scene) {
		for _, m := range morphers {
			s.registry[uuid.New()] = m
		}
	}
}

// WithComputeWorkers sets the number of worker goroutines in the scene's compute pool.
// Higher values may improve throughput with many large CPU morphers; lower values reduce
// scheduling overhead for small meshes.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithComputePool shares an existing pool instead of starting one. The scene does not stop it.
func WithComputePool(pool worker.DynamicWorkerPool) SceneBuilderOption {
	return func(s *scene) {
		s.computePool = pool
	}
}

// WithLogger replaces the scene's logger.
func WithLogger(l *log.Logger) SceneBuilderOption {
	return func(s *scene) {
		s.log = l
	}
}

// WithConfig applies the compute section of the configuration: the worker count and the chunk
// size handed to morphers created through NewMorpher.
//
// Parameters:
//   - cfg: the compute configuration
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithConfig(cfg config.ComputeConfig) SceneBuilderOption {
	return func(s *scene) {
		s.computeWorkers = cfg.WorkerCount()
		if cfg.ChunkSize > 0 {
			s.chunkSize = cfg.ChunkSize
		}
	}
}

// WithMorpherOptions sets options applied to every morpher created through NewMorpher, before
// the per-call options.
//
// Parameters:
//   - options: the morpher options
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMorpherOptions(options ...morpher.MorpherBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.morpherOptions = append(s.morpherOptions, options...)
	}
}
