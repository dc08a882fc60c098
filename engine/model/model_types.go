package model

// --- Import Types ---

// ImportedModel represents a morphable model loaded from an external format.
// This is the universal format that importers (glTF, GLB) produce.
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Meshes contains every primitive that carries vertex data, in file order.
	Meshes []ImportedMesh
}

// ImportedMesh represents a single mesh primitive within an imported model, with its
// morph targets still stored as separate attribute streams.
type ImportedMesh struct {
	// Name is the mesh identifier. Primitives after the first are suffixed with their index.
	Name string

	// Positions are the base mesh positions.
	Positions [][3]float32

	// Normals are the base mesh normals. Empty when the primitive has none.
	Normals [][3]float32

	// Tangents are the base mesh tangents with handedness in W. Empty when the primitive has none.
	Tangents [][4]float32

	// Indices are the triangle indices.
	Indices []uint32

	// Targets are the morph targets of the primitive, in file order.
	Targets []ImportedTarget

	// Weights are the default target weights from mesh.weights. May be shorter than Targets.
	Weights []float32

	// BoundingMin is the minimum corner of the axis-aligned bounding box.
	BoundingMin [3]float32

	// BoundingMax is the maximum corner of the axis-aligned bounding box.
	BoundingMax [3]float32
}

// ImportedTarget is a single morph target as stored in the file: per-vertex displacements
// for each attribute the target provides.
type ImportedTarget struct {
	// Name is the target name, from mesh.extras.targetNames when present.
	Name string

	// Positions are the position displacements.
	Positions [][3]float32

	// Normals are the normal displacements. Empty when the target has none.
	Normals [][3]float32

	// Tangents are the tangent displacements (XYZ only). Empty when the target has none.
	Tangents [][3]float32
}

// HasMorphTargets reports whether the mesh carries at least one morph target.
func (m *ImportedMesh) HasMorphTargets() bool {
	return len(m.Targets) > 0
}
