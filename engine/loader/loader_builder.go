package loader

import (
	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-morph/engine/model"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - imported: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, imported *model.ImportedModel) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = imported
	}
}

// WithLogger replaces the loader's logger.
func WithLogger(l *log.Logger) LoaderBuilderOption {
	return func(ld *loader) {
		ld.log = l
	}
}
