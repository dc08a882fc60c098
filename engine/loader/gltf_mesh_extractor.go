package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-morph/engine/model"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor extracts base mesh attribute streams and morph target displacements from
// a parsed glTF document. This is internal to the loader package.
type gltfMeshExtractor interface {
	// ExtractMesh extracts every primitive of a glTF mesh as an ImportedMesh.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh in the document
	//
	// Returns:
	//   - []model.ImportedMesh: one imported mesh per primitive
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) ([]model.ImportedMesh, error)

	// ExtractAllMeshes extracts every primitive of every mesh in the document.
	//
	// Returns:
	//   - []model.ImportedMesh: the imported meshes in document order
	//   - error: error if extraction fails
	ExtractAllMeshes() ([]model.ImportedMesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a mesh extractor reading from parser.
//
// Parameters:
//   - parser: a parser that has loaded a document
//
// Returns:
//   - gltfMeshExtractor: the extractor
func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]model.ImportedMesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	mesh := &doc.Meshes[meshIndex]
	weights := gltfMeshWeights(doc, meshIndex)

	result := make([]model.ImportedMesh, 0, len(mesh.Primitives))
	for primIdx := range mesh.Primitives {
		imported, err := e.extractPrimitive(mesh, &mesh.Primitives[primIdx], meshIndex, primIdx)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		imported.Weights = weights
		result = append(result, *imported)
	}
	return result, nil
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([]model.ImportedMesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	var all []model.ImportedMesh
	for i := range doc.Meshes {
		meshes, err := e.ExtractMesh(i)
		if err != nil {
			return nil, err
		}
		all = append(all, meshes...)
	}
	return all, nil
}

// extractPrimitive reads the base attributes, indices and morph targets of one primitive.
func (e *gltfMeshExtractorImpl) extractPrimitive(mesh *gltfMesh, prim *gltfPrimitive, meshIndex, primIndex int) (*model.ImportedMesh, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, fmt.Errorf("unsupported primitive mode: %d (only triangles supported)", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes[gltfAttributePosition]
	if !ok {
		return nil, fmt.Errorf("primitive has no %s attribute", gltfAttributePosition)
	}
	positions, err := e.parser.ReadVec3Accessor(posAccessor)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	out := &model.ImportedMesh{
		Name:      gltfPrimitiveName(mesh.Name, meshIndex, primIndex),
		Positions: positions,
	}
	if out.Normals, err = e.readOptionalVec3(prim.Attributes, gltfAttributeNormal); err != nil {
		return nil, err
	}
	if idx, ok := prim.Attributes[gltfAttributeTangent]; ok {
		if out.Tangents, err = e.parser.ReadVec4Accessor(idx); err != nil {
			return nil, fmt.Errorf("failed to read tangents: %w", err)
		}
	}

	if prim.Indices != nil {
		if out.Indices, err = e.parser.ReadIndicesAccessor(*prim.Indices); err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		out.Indices = make([]uint32, len(positions))
		for i := range out.Indices {
			out.Indices[i] = uint32(i)
		}
	}

	var names []string
	if mesh.Extras != nil {
		names = mesh.Extras.TargetNames
	}
	for t, attrs := range prim.Targets {
		target, err := e.extractTarget(attrs)
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", t, err)
		}
		target.Name = fmt.Sprintf("target_%d", t)
		if t < len(names) && names[t] != "" {
			target.Name = names[t]
		}
		out.Targets = append(out.Targets, *target)
	}

	out.BoundingMin, out.BoundingMax = model.ComputeBounds(positions)
	return out, nil
}

// extractTarget reads the displacement accessors of one morph target. glTF target tangents are
// VEC3 displacements; the base handedness is never morphed.
func (e *gltfMeshExtractorImpl) extractTarget(attrs map[string]int) (*model.ImportedTarget, error) {
	idx, ok := attrs[gltfAttributePosition]
	if !ok {
		return nil, fmt.Errorf("morph target has no %s displacement", gltfAttributePosition)
	}
	positions, err := e.parser.ReadVec3Accessor(idx)
	if err != nil {
		return nil, fmt.Errorf("failed to read position displacements: %w", err)
	}

	target := &model.ImportedTarget{Positions: positions}
	if target.Normals, err = e.readOptionalVec3(attrs, gltfAttributeNormal); err != nil {
		return nil, err
	}
	if target.Tangents, err = e.readOptionalVec3(attrs, gltfAttributeTangent); err != nil {
		return nil, err
	}
	return target, nil
}

// readOptionalVec3 reads a VEC3 attribute when present and returns nil when it is not.
func (e *gltfMeshExtractorImpl) readOptionalVec3(attrs map[string]int, semantic string) ([][3]float32, error) {
	idx, ok := attrs[semantic]
	if !ok {
		return nil, nil
	}
	data, err := e.parser.ReadVec3Accessor(idx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", semantic, err)
	}
	return data, nil
}

// gltfMeshWeights returns the default weights of a mesh. The first node instancing the mesh with
// its own weights overrides mesh.weights.
func gltfMeshWeights(doc *gltfDocument, meshIndex int) []float32 {
	for _, node := range doc.Nodes {
		if node.Mesh != nil && *node.Mesh == meshIndex && len(node.Weights) > 0 {
			return node.Weights
		}
	}
	return doc.Meshes[meshIndex].Weights
}

// gltfPrimitiveName names a primitive after its mesh, suffixing primitives after the first.
func gltfPrimitiveName(meshName string, meshIndex, primIndex int) string {
	name := meshName
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIndex)
	}
	if primIndex > 0 {
		name = fmt.Sprintf("%s_prim%d", name, primIndex)
	}
	return name
}
