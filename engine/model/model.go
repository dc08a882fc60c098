package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
)

// morphMesh is the implementation of the MorphMesh interface.
type morphMesh struct {
	name           string
	positions      [][3]float32
	normals        [][3]float32
	tangents       [][4]float32
	indices        []uint32
	targets        []ImportedTarget
	defaultWeights []float32
	boundingRadius float32
}

// MorphMesh defines the interface for a base mesh together with its morph targets.
// It holds the data as separate attribute streams, the way importers produce it, and converts
// to the interleaved morph.Vertex and morph.Target forms the blend backends consume.
type MorphMesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// VertexCount returns the number of base mesh vertices.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// TargetCount returns the number of morph targets.
	//
	// Returns:
	//   - int: the target count
	TargetCount() int

	// TargetNames returns the names of all morph targets, in slot order.
	//
	// Returns:
	//   - []string: the target names
	TargetNames() []string

	// TargetIndex returns the slot of a morph target by name, or -1 if not found.
	//
	// Parameters:
	//   - name: the target name to search for
	//
	// Returns:
	//   - int: the target slot, or -1 if not found
	TargetIndex(name string) int

	// Attributes reports which vertex attributes the mesh and all its targets carry.
	// Position is always present; normal and tangent are only reported when every
	// target provides them too.
	//
	// Returns:
	//   - morph.Attributes: the available attribute mask
	Attributes() morph.Attributes

	// Validate checks the mesh can be morphed.
	//
	// Returns:
	//   - error: ErrMissingBaseMesh, ErrAttributeCountMismatch, or a morph.ValidateTargets error
	Validate() error

	// BaseVertices interleaves the base attribute streams into morph vertices.
	// Missing normals and tangents are left zero.
	//
	// Returns:
	//   - []morph.Vertex: a fresh slice of VertexCount vertices
	BaseVertices() []morph.Vertex

	// Targets converts the morph targets into delta form.
	//
	// Returns:
	//   - []morph.Target: one target per slot, each with VertexCount deltas
	Targets() []morph.Target

	// DefaultWeights returns the authored default weights, one active slot per target.
	//
	// Returns:
	//   - morph.WeightVector: the default weights
	DefaultWeights() morph.WeightVector

	// Indices returns the triangle indices.
	//
	// Returns:
	//   - []uint32: the index data
	Indices() []uint32

	// BoundingRadius returns the bounding sphere radius of the base mesh, measured as
	// the maximum vertex distance from the origin.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32
}

var _ MorphMesh = &morphMesh{}

// NewMorphMesh creates a new MorphMesh with the provided options applied.
//
// Parameters:
//   - options: a variadic list of MorphMeshBuilderOption functions to configure the mesh
//
// Returns:
//   - MorphMesh: a new instance of MorphMesh
func NewMorphMesh(options ...MorphMeshBuilderOption) MorphMesh {
	m := &morphMesh{}
	for _, option := range options {
		option(m)
	}
	m.boundingRadius = ComputeBoundingRadius(m.positions)
	return m
}

// FromImported creates a MorphMesh from an imported mesh primitive.
//
// Parameters:
//   - mesh: the imported mesh
//
// Returns:
//   - MorphMesh: the morph mesh sharing the imported streams
func FromImported(mesh ImportedMesh) MorphMesh {
	return NewMorphMesh(
		WithName(mesh.Name),
		WithPositions(mesh.Positions),
		WithNormals(mesh.Normals),
		WithTangents(mesh.Tangents),
		WithIndices(mesh.Indices),
		WithImportedTargets(mesh.Targets...),
		WithDefaultWeights(mesh.Weights...),
	)
}

func (m *morphMesh) Name() string {
	return m.name
}

func (m *morphMesh) VertexCount() int {
	return len(m.positions)
}

func (m *morphMesh) TargetCount() int {
	return len(m.targets)
}

func (m *morphMesh) TargetNames() []string {
	names := make([]string, len(m.targets))
	for i, t := range m.targets {
		names[i] = t.Name
	}
	return names
}

func (m *morphMesh) TargetIndex(name string) int {
	for i, t := range m.targets {
		if t.Name == name {
			return i
		}
	}
	return -1
}

func (m *morphMesh) Attributes() morph.Attributes {
	attrs := morph.AttributePosition
	n := len(m.positions)
	hasNormals, hasTangents := len(m.normals) == n && n > 0, len(m.tangents) == n && n > 0
	for _, t := range m.targets {
		hasNormals = hasNormals && len(t.Normals) == n
		hasTangents = hasTangents && len(t.Tangents) == n
	}
	if hasNormals {
		attrs |= morph.AttributeNormal
	}
	if hasTangents {
		attrs |= morph.AttributeTangent
	}
	return attrs
}

func (m *morphMesh) Validate() error {
	n := len(m.positions)
	if n == 0 {
		return morph.ErrMissingBaseMesh
	}
	if err := checkStream("base normals", len(m.normals), n); err != nil {
		return err
	}
	if err := checkStream("base tangents", len(m.tangents), n); err != nil {
		return err
	}
	for i, t := range m.targets {
		if len(t.Positions) != n {
			return fmt.Errorf("%w: target %d (%q) has %d positions, base has %d",
				morph.ErrTargetsNotTopologicallyIdentical, i, t.Name, len(t.Positions), n)
		}
		if err := checkStream(fmt.Sprintf("target %d normals", i), len(t.Normals), n); err != nil {
			return err
		}
		if err := checkStream(fmt.Sprintf("target %d tangents", i), len(t.Tangents), n); err != nil {
			return err
		}
	}
	return morph.ValidateTargets(n, m.Targets())
}

// checkStream accepts an absent stream or one matching the position count.
func checkStream(what string, got, want int) error {
	if got != 0 && got != want {
		return fmt.Errorf("%w: %s has %d entries, positions has %d", morph.ErrAttributeCountMismatch, what, got, want)
	}
	return nil
}

func (m *morphMesh) BaseVertices() []morph.Vertex {
	vertices := make([]morph.Vertex, len(m.positions))
	for i := range vertices {
		vertices[i].Position = m.positions[i]
		if i < len(m.normals) {
			vertices[i].Normal = m.normals[i]
		}
		if i < len(m.tangents) {
			vertices[i].Tangent = m.tangents[i]
		}
	}
	return vertices
}

func (m *morphMesh) Targets() []morph.Target {
	targets := make([]morph.Target, len(m.targets))
	for t, src := range m.targets {
		deltas := make([]morph.TargetDelta, len(src.Positions))
		for i := range deltas {
			deltas[i].Position = src.Positions[i]
			if i < len(src.Normals) {
				deltas[i].Normal = src.Normals[i]
			}
			if i < len(src.Tangents) {
				deltas[i].Tangent = src.Tangents[i]
			}
		}
		targets[t] = morph.Target{Name: src.Name, Deltas: deltas}
	}
	return targets
}

func (m *morphMesh) DefaultWeights() morph.WeightVector {
	return morph.NewWeightVector(m.defaultWeights...).WithActive(len(m.targets))
}

func (m *morphMesh) Indices() []uint32 {
	return m.indices
}

func (m *morphMesh) BoundingRadius() float32 {
	return m.boundingRadius
}
