package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/Carmen-Shannon/oxy-morph/engine/logger"
	"github.com/Carmen-Shannon/oxy-morph/engine/model"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// Errors returned by the Loader.
var (
	ErrUnsupportedFormat = errors.New("loader: unsupported model format")
	ErrMeshNotFound      = errors.New("loader: mesh not found")
	ErrNoMorphTargets    = errors.New("loader: model has no mesh with morph targets")
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	modelCache map[string]*model.ImportedModel

	backend loaderBackend
	log     *log.Logger
}

// Loader defines the public-facing interface for importing and caching morphable models.
// It abstracts the file format (glTF, GLB) behind a generic backend and manages a cache of
// previously imported models.
type Loader interface {
	// Load imports a model file and caches the result by path.
	// If the model is already cached, the cached version is returned.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: ErrUnsupportedFormat or an import error
	Load(path string) (*model.ImportedModel, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded model
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: an import error
	LoadReader(name string, r io.Reader, isGLB bool) (*model.ImportedModel, error)

	// LoadMorphMesh imports a model file and returns one of its meshes as a MorphMesh.
	//
	// Parameters:
	//   - path: the file path to the model file
	//   - meshName: the mesh to select, or empty for the first mesh with morph targets
	//
	// Returns:
	//   - model.MorphMesh: the selected mesh
	//   - error: ErrMeshNotFound, ErrNoMorphTargets, or an import error
	LoadMorphMesh(path, meshName string) (model.MorphMesh, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *model.ImportedModel: the cached model or nil
	Get(name string) *model.ImportedModel

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]*model.ImportedModel: all cached models keyed by name
	Models() map[string]*model.ImportedModel

	// Invalidate drops a model from the cache so the next Load re-imports it.
	//
	// Parameters:
	//   - name: the cache key to drop
	Invalidate(name string)

	// Watch re-imports a model file every time it is written, created or renamed into place,
	// and reports each result to onChange. The containing directory is watched, so editors that
	// replace files atomically are handled. Watch blocks until ctx is cancelled.
	//
	// Parameters:
	//   - ctx: cancels the watch
	//   - path: the file path to the model file
	//   - onChange: receives every re-import, or the error it failed with
	//
	// Returns:
	//   - error: an error if the watcher could not be started, or ctx.Err() once cancelled
	Watch(ctx context.Context, path string, onChange func(*model.ImportedModel, error)) error
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		modelCache: make(map[string]*model.ImportedModel),
	}

	switch backendType {
	case BackendTypeGLTF:
		fallthrough
	default:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	if l.log == nil {
		l.log = logger.Component("loader")
	}
	return l
}

func (l *loader) Load(path string) (*model.ImportedModel, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	if err := l.checkFormat(path); err != nil {
		return nil, err
	}

	imported, err := l.backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.mu.Lock()
	l.modelCache[path] = imported
	l.mu.Unlock()

	l.log.Debug("model imported", "path", path, "meshes", len(imported.Meshes))
	return imported, nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*model.ImportedModel, error) {
	imported, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	if imported.Name == "unnamed_model" {
		imported.Name = name
	}

	l.mu.Lock()
	l.modelCache[name] = imported
	l.mu.Unlock()
	return imported, nil
}

func (l *loader) LoadMorphMesh(path, meshName string) (model.MorphMesh, error) {
	imported, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	mesh, err := SelectMesh(imported, meshName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return model.FromImported(*mesh), nil
}

// SelectMesh picks a mesh out of an imported model by name, or the first mesh with morph
// targets when name is empty.
//
// Parameters:
//   - imported: the imported model
//   - name: the mesh name, or empty
//
// Returns:
//   - *model.ImportedMesh: the selected mesh
//   - error: ErrMeshNotFound or ErrNoMorphTargets
func SelectMesh(imported *model.ImportedModel, name string) (*model.ImportedMesh, error) {
	for i := range imported.Meshes {
		mesh := &imported.Meshes[i]
		if name == "" && mesh.HasMorphTargets() {
			return mesh, nil
		}
		if name != "" && mesh.Name == name {
			return mesh, nil
		}
	}
	if name == "" {
		return nil, ErrNoMorphTargets
	}
	return nil, fmt.Errorf("%w: %q", ErrMeshNotFound, name)
}

func (l *loader) Get(name string) *model.ImportedModel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]*model.ImportedModel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]*model.ImportedModel, len(l.modelCache))
	for k, v := range l.modelCache {
		out[k] = v
	}
	return out
}

func (l *loader) Invalidate(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.modelCache, name)
}

func (l *loader) Watch(ctx context.Context, path string, onChange func(*model.ImportedModel, error)) error {
	if err := l.checkFormat(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	target := filepath.Clean(path)
	l.log.Info("watching model", "path", target)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != target || !e.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			l.Invalidate(path)
			imported, err := l.Load(path)
			if err != nil {
				// Partial writes fail to parse; the next event retries.
				l.log.Warn("reload failed", "path", target, "op", e.Op.String(), "err", err)
			} else {
				l.log.Info("model reloaded", "path", target, "meshes", len(imported.Meshes))
			}
			onChange(imported, err)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.log.Error("watcher error", "path", target, "err", err)
		}
	}
}

// checkFormat rejects files no backend can import.
func (l *loader) checkFormat(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(l.backend.Extensions(), ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return nil
}
