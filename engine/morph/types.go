package morph

// Attributes is a bit mask selecting which vertex attributes take part in a blend.
// Position is always blended; the normal and tangent bits opt those attributes in.
type Attributes uint32

const (
	// AttributePosition blends vertex positions.
	AttributePosition Attributes = 1 << iota

	// AttributeNormal blends vertex normals. Blended normals are not renormalized.
	AttributeNormal

	// AttributeTangent blends the xyz part of vertex tangents. The handedness in W is copied from the base.
	AttributeTangent
)

// AttributesAll selects every blendable attribute.
const AttributesAll = AttributePosition | AttributeNormal | AttributeTangent

// Has reports whether every bit of b is set in a.
//
// Parameters:
//   - b: the attribute bits to test
//
// Returns:
//   - bool: true if all bits in b are set
func (a Attributes) Has(b Attributes) bool {
	return a&b == b
}

// Vertex holds the attributes of one base mesh vertex.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	Tangent  [4]float32 // xyz direction, w handedness
}

// TargetDelta holds the per-vertex offsets of one morph target relative to the base mesh.
type TargetDelta struct {
	Position [3]float32
	Normal   [3]float32
	Tangent  [3]float32
}

// Target is a named morph target. Deltas are indexed identically to the base vertices:
// same count, same ordering.
type Target struct {
	Name   string
	Deltas []TargetDelta
}

// WeightVector is the ordered set of blend weights for one frame.
// Slots at or beyond Active contribute nothing to a blend regardless of their value.
type WeightVector struct {
	Weights [MaxTargetCount]float32
	Active  int
}

// NewWeightVector builds a WeightVector from up to MaxTargetCount weights.
// Missing slots are zero and weights past MaxTargetCount are dropped.
//
// Parameters:
//   - weights: the weights in target slot order
//
// Returns:
//   - WeightVector: the padded or truncated weight vector
func NewWeightVector(weights ...float32) WeightVector {
	var w WeightVector
	w.Active = copy(w.Weights[:], weights)
	return w
}

// ZeroWeights returns a WeightVector with the given number of active slots, all weighted zero.
//
// Parameters:
//   - active: the number of active target slots, clamped to [0, MaxTargetCount]
//
// Returns:
//   - WeightVector: the zero weight vector
func ZeroWeights(active int) WeightVector {
	return WeightVector{Active: clampActive(active)}
}

// Slice returns the active weights as a slice.
//
// Returns:
//   - []float32: a copy of the active weights
func (w WeightVector) Slice() []float32 {
	out := make([]float32, clampActive(w.Active))
	copy(out, w.Weights[:])
	return out
}

// Scale multiplies every weight by c.
//
// Parameters:
//   - c: the scalar to apply
//
// Returns:
//   - WeightVector: the scaled weights with the same active count
func (w WeightVector) Scale(c float32) WeightVector {
	for i := range w.Weights {
		w.Weights[i] *= c
	}
	return w
}

// Mix linearly interpolates from w toward to by t. The active count of the result is the
// larger of the two. t is not clamped.
//
// Parameters:
//   - to: the destination weights
//   - t: the interpolation factor, 0 yields w and 1 yields to
//
// Returns:
//   - WeightVector: the interpolated weights
func (w WeightVector) Mix(to WeightVector, t float32) WeightVector {
	out := WeightVector{Active: max(w.Active, to.Active)}
	for i := range out.Weights {
		out.Weights[i] = w.Weights[i] + (to.Weights[i]-w.Weights[i])*t
	}
	return out
}

// WithActive returns a copy of w with its active count replaced.
//
// Parameters:
//   - active: the new active count, clamped to [0, MaxTargetCount]
//
// Returns:
//   - WeightVector: the updated weights
func (w WeightVector) WithActive(active int) WeightVector {
	w.Active = clampActive(active)
	return w
}

func clampActive(active int) int {
	return min(max(active, 0), MaxTargetCount)
}
