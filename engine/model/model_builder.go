package model

// MorphMeshBuilderOption is a functional option for configuring a MorphMesh via NewMorphMesh.
type MorphMeshBuilderOption func(*morphMesh)

// WithName is an option builder that sets the name of the MorphMesh.
//
// Parameters:
//   - name: the mesh identifier
//
// Returns:
//   - MorphMeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) MorphMeshBuilderOption {
	return func(m *morphMesh) {
		m.name = name
	}
}

// WithPositions is an option builder that sets the base mesh positions.
//
// Parameters:
//   - positions: the base positions
//
// Returns:
//   - MorphMeshBuilderOption: a function that applies the positions option to a mesh
func WithPositions(positions [][3]float32) MorphMeshBuilderOption {
	return func(m *morphMesh) {
		m.positions = positions
	}
}

// WithNormals is an option builder that sets the base mesh normals.
//
// Parameters:
//   - normals: the base normals, one per position
//
// Returns:
//   - MorphMeshBuilderOption: a function that applies the normals option to a mesh
func WithNormals(normals [][3]float32) MorphMeshBuilderOption {
	return func(m *morphMesh) {
		m.normals = normals
	}
}

// WithTangents is an option builder that sets the base mesh tangents.
//
// Parameters:
//   - tangents: the base tangents with handedness in W, one per position
//
// Returns:
//   - MorphMeshBuilderOption: a function that applies the tangents option to a mesh
func WithTangents(tangents [][4]float32) MorphMeshBuilderOption {
	return func(m *morphMesh) {
		m.tangents = tangents
	}
}

// WithIndices is an option builder that sets the triangle indices.
//
// Parameters:
//   - indices: the index data
//
// Returns:
//   - MorphMeshBuilderOption: a function that applies the indices option to a mesh
func WithIndices(indices []uint32) MorphMeshBuilderOption {
	return func(m *morphMesh) {
		m.indices = indices
	}
}

// WithTarget is an option builder that appends a morph target built from displacement streams.
// Normals and tangents may be nil.
//
// Parameters:
//   - name: the target name
//   - positions: the position displacements
//   - normals: the normal displacements
//   - tangents: the tangent displacements
//
// Returns:
//   - MorphMeshBuilderOption: a function that appends the target to a mesh
func WithTarget(name string, positions, normals, tangents [][3]float32) MorphMeshBuilderOption {
	return func(m *morphMesh) {
		m.targets = append(m.targets, ImportedTarget{Name: name, Positions: positions, Normals: normals, Tangents: tangents})
	}
}

// WithImportedTargets is an option builder that appends already imported morph targets.
//
// Parameters:
//   - targets: the targets to append
//
// Returns:
//   - MorphMeshBuilderOption: a function that appends the targets to a mesh
func WithImportedTargets(targets ...ImportedTarget) MorphMeshBuilderOption {
	return func(m *morphMesh) {
		m.targets = append(m.targets, targets...)
	}
}

// WithDefaultWeights is an option builder that sets the authored default target weights.
//
// Parameters:
//   - weights: the default weights in target slot order
//
// Returns:
//   - MorphMeshBuilderOption: a function that applies the weights option to a mesh
func WithDefaultWeights(weights ...float32) MorphMeshBuilderOption {
	return func(m *morphMesh) {
		m.defaultWeights = weights
	}
}
