package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-morph/common"
	"github.com/Carmen-Shannon/oxy-morph/engine/model"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter turns glTF/GLB files into ImportedModels by driving the parser and mesh extractor.
// This is internal to the loader package.
type gltfImporter interface {
	// Import parses a glTF or GLB file and extracts every mesh primitive.
	//
	// Parameters:
	//   - path: the file path to import
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: error if parsing or extraction fails
	Import(path string) (*model.ImportedModel, error)

	// ImportReader parses glTF JSON or GLB data from a reader and extracts every mesh primitive.
	//
	// Parameters:
	//   - r: the reader providing the data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: error if parsing or extraction fails
	ImportReader(r io.Reader, isGLB bool) (*model.ImportedModel, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) Import(path string) (*model.ImportedModel, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return imp.importFromParser(parser, path)
}

func (imp *gltfImporterImpl) ImportReader(r io.Reader, isGLB bool) (*model.ImportedModel, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return imp.importFromParser(parser, "")
}

// importFromParser extracts the meshes of a document that has already been parsed.
//
// Parameters:
//   - parser: the glTF parser that has already loaded a document
//   - fallbackPath: optional file path used as a fallback for model naming
func (imp *gltfImporterImpl) importFromParser(parser gltfParser, fallbackPath string) (*model.ImportedModel, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if len(doc.ExtensionsRequired) > 0 {
		return nil, fmt.Errorf("unsupported required extensions: %s", strings.Join(doc.ExtensionsRequired, ", "))
	}

	meshes, err := newGLTFMeshExtractor(parser).ExtractAllMeshes()
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}

	return &model.ImportedModel{
		Name:   gltfExtractModelName(doc, fallbackPath),
		Meshes: meshes,
	}, nil
}

// gltfExtractModelName derives a model name from the default scene or a file path fallback.
func gltfExtractModelName(doc *gltfDocument, fallbackPath string) string {
	var sceneName, fileName string
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		sceneName = doc.Scenes[*doc.Scene].Name
	}
	if fallbackPath != "" {
		fileName = strings.TrimSuffix(filepath.Base(fallbackPath), filepath.Ext(fallbackPath))
	}
	return common.Coalesce(sceneName, fileName, "unnamed_model")
}
