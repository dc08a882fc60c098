package morph

import "fmt"

// ValidateTargets checks that a set of morph targets can be packed against a base mesh of
// vertexCount vertices.
//
// Parameters:
//   - vertexCount: the number of base mesh vertices
//   - targets: the morph targets to validate
//
// Returns:
//   - error: ErrMissingBaseMesh, ErrInvalidNumberOfTargets, ErrTargetsNotTopologicallyIdentical or
//     ErrTooMuchGeometry (possibly wrapped), or nil if the targets are usable
func ValidateTargets(vertexCount int, targets []Target) error {
	if vertexCount <= 0 {
		return ErrMissingBaseMesh
	}
	if len(targets) < 1 || len(targets) > MaxTargetCount {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidNumberOfTargets, len(targets), MaxTargetCount)
	}
	for i, t := range targets {
		if len(t.Deltas) != vertexCount {
			return fmt.Errorf("%w: target %d (%q) has %d vertices, base has %d",
				ErrTargetsNotTopologicallyIdentical, i, t.Name, len(t.Deltas), vertexCount)
		}
	}
	if vertexCount*MaxTargetCount > MaxPackedDeltas {
		return fmt.Errorf("%w: %d vertices exceeds the %d packed delta budget", ErrTooMuchGeometry, vertexCount, MaxPackedDeltas)
	}
	return nil
}

// PackDeltas flattens targets into the target-major layout consumed by BlendRange and the blend
// kernel: all deltas of target 0, then target 1, and so on, zero padded up to MaxTargetCount
// targets so the buffer size never depends on how many targets are loaded.
//
// Parameters:
//   - vertexCount: the number of base mesh vertices
//   - targets: the morph targets to pack
//
// Returns:
//   - []TargetDelta: vertexCount*MaxTargetCount packed deltas
//   - error: a validation error from ValidateTargets
func PackDeltas(vertexCount int, targets []Target) ([]TargetDelta, error) {
	if err := ValidateTargets(vertexCount, targets); err != nil {
		return nil, err
	}

	packed := make([]TargetDelta, vertexCount*MaxTargetCount)
	for t, target := range targets {
		copy(packed[t*vertexCount:(t+1)*vertexCount], target.Deltas)
	}
	return packed, nil
}

// DeltasFromShapes converts an absolute target shape into deltas against the base mesh.
// Shapes authored as full vertex sets (rather than offsets) are converted with this before packing.
//
// Parameters:
//   - base: the base mesh vertices
//   - shape: the target mesh vertices, same count and ordering as base
//
// Returns:
//   - []TargetDelta: shape minus base for every attribute
//   - error: ErrTargetsNotTopologicallyIdentical if the counts differ
func DeltasFromShapes(base, shape []Vertex) ([]TargetDelta, error) {
	if len(base) != len(shape) {
		return nil, fmt.Errorf("%w: shape has %d vertices, base has %d", ErrTargetsNotTopologicallyIdentical, len(shape), len(base))
	}

	deltas := make([]TargetDelta, len(base))
	for i := range base {
		for k := range 3 {
			deltas[i].Position[k] = shape[i].Position[k] - base[i].Position[k]
			deltas[i].Normal[k] = shape[i].Normal[k] - base[i].Normal[k]
			deltas[i].Tangent[k] = shape[i].Tangent[k] - base[i].Tangent[k]
		}
	}
	return deltas, nil
}
