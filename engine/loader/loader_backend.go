package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-morph/engine/model"
)

// loaderBackend defines the generic interface for importing morphable models from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Extensions lists the lower-case file extensions the backend imports.
	//
	// Returns:
	//   - []string: the extensions, including the leading dot
	Extensions() []string

	// Load performs a full import from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *model.ImportedModel: the imported model data
	//   - error: error if loading fails
	Load(path string) (*model.ImportedModel, error)

	// LoadReader imports a model from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//
	// Returns:
	//   - *model.ImportedModel: the imported model data
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) (*model.ImportedModel, error)
}
