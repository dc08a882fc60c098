package morph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

const blendTol = 1e-5

func randomVec3(r *rand.Rand) [3]float32 {
	return [3]float32{r.Float32()*4 - 2, r.Float32()*4 - 2, r.Float32()*4 - 2}
}

func randomMesh(r *rand.Rand, vertexCount, targetCount int) ([]Vertex, []Target) {
	base := make([]Vertex, vertexCount)
	for i := range base {
		base[i] = Vertex{
			Position: randomVec3(r),
			Normal:   randomVec3(r),
			Tangent:  [4]float32{r.Float32(), r.Float32(), r.Float32(), 1},
		}
	}
	targets := make([]Target, targetCount)
	for t := range targets {
		targets[t].Deltas = make([]TargetDelta, vertexCount)
		for i := range targets[t].Deltas {
			targets[t].Deltas[i] = TargetDelta{Position: randomVec3(r), Normal: randomVec3(r), Tangent: randomVec3(r)}
		}
	}
	return base, targets
}

func assertVec3InDelta(t *testing.T, expected, actual [3]float32, tol float64) {
	t.Helper()
	for k := range 3 {
		assert.InDelta(t, expected[k], actual[k], tol, "component %d", k)
	}
}

func TestBlendVertexScenarios(t *testing.T) {
	tests := []struct {
		name     string
		deltas   [MaxTargetCount]TargetDelta
		weights  WeightVector
		expected [3]float32
	}{
		{
			name: "three targets partial weights",
			deltas: [MaxTargetCount]TargetDelta{
				{Position: [3]float32{1, 0, 0}},
				{Position: [3]float32{0, 1, 0}},
				{Position: [3]float32{0, 0, 1}},
			},
			weights:  NewWeightVector(0.5, 0.25, 0.0),
			expected: [3]float32{0.5, 0.25, 0},
		},
		{
			name: "single active target ignores inactive slots",
			deltas: [MaxTargetCount]TargetDelta{
				{Position: [3]float32{2, 0, 0}},
				{Position: [3]float32{9, 9, 9}},
				{Position: [3]float32{9, 9, 9}},
			},
			weights:  NewWeightVector(3.0),
			expected: [3]float32{6, 0, 0},
		},
		{
			name: "negative and greater than one weights are not clamped",
			deltas: [MaxTargetCount]TargetDelta{
				{Position: [3]float32{1, 1, 1}},
				{Position: [3]float32{1, 0, 0}},
			},
			weights:  NewWeightVector(-1, 2.5),
			expected: [3]float32{1.5, -1, -1},
		},
		{
			name:     "no active targets",
			deltas:   [MaxTargetCount]TargetDelta{{Position: [3]float32{1, 2, 3}}},
			weights:  ZeroWeights(0),
			expected: [3]float32{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BlendVertex(Vertex{}, &tt.deltas, tt.weights, AttributePosition)
			assert.Equal(t, tt.expected, got.Position)
		})
	}
}

func TestBlendVertexInactiveWeightsIgnored(t *testing.T) {
	deltas := [MaxTargetCount]TargetDelta{
		{Position: [3]float32{2, 0, 0}},
		{Position: [3]float32{0, 5, 0}},
		{Position: [3]float32{0, 0, 7}},
	}
	w := WeightVector{Weights: [MaxTargetCount]float32{3, 10, 10}, Active: 1}

	got := BlendVertex(Vertex{}, &deltas, w, AttributePosition)
	assert.Equal(t, [3]float32{6, 0, 0}, got.Position)
}

func TestBlendVertexZeroWeightsReproduceBase(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, vertexCount := range []int{1, 7, 64, 257} {
		for k := 0; k <= MaxTargetCount; k++ {
			base, targets := randomMesh(r, vertexCount, max(k, 1))
			packed, err := PackDeltas(vertexCount, targets)
			assert.NoError(t, err)

			dst := make([]Vertex, vertexCount)
			Blend(dst, base, packed, ZeroWeights(k), AttributesAll)
			assert.Equal(t, base, dst, "vertexCount=%d k=%d", vertexCount, k)
		}
	}
}

func TestBlendVertexLinearInWeights(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	base, targets := randomMesh(r, 32, MaxTargetCount)
	packed, err := PackDeltas(len(base), targets)
	assert.NoError(t, err)

	w := NewWeightVector(0.3, -0.7, 1.4)
	for _, c := range []float32{0, 0.5, 2, -3} {
		dst := make([]Vertex, len(base))
		scaled := make([]Vertex, len(base))
		Blend(dst, base, packed, w, AttributePosition)
		Blend(scaled, base, packed, w.Scale(c), AttributePosition)

		for i := range base {
			for k := range 3 {
				displacement := dst[i].Position[k] - base[i].Position[k]
				scaledDisplacement := scaled[i].Position[k] - base[i].Position[k]
				assert.InDelta(t, c*displacement, scaledDisplacement, 1e-4)
			}
		}
	}
}

func TestBlendVertexPermutationInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	base, targets := randomMesh(r, 16, MaxTargetCount)
	weights := []float32{0.25, 0.6, -0.4}

	permutations := [][MaxTargetCount]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	reference := make([]Vertex, len(base))
	packed, err := PackDeltas(len(base), targets)
	assert.NoError(t, err)
	Blend(reference, base, packed, NewWeightVector(weights...), AttributesAll)

	for _, perm := range permutations {
		permTargets := make([]Target, MaxTargetCount)
		permWeights := make([]float32, MaxTargetCount)
		for slot, src := range perm {
			permTargets[slot] = targets[src]
			permWeights[slot] = weights[src]
		}
		permPacked, err := PackDeltas(len(base), permTargets)
		assert.NoError(t, err)

		dst := make([]Vertex, len(base))
		Blend(dst, base, permPacked, NewWeightVector(permWeights...), AttributesAll)
		for i := range base {
			assertVec3InDelta(t, reference[i].Position, dst[i].Position, blendTol)
			assertVec3InDelta(t, reference[i].Normal, dst[i].Normal, blendTol)
		}
	}
}

func TestBlendVertexAttributeSelection(t *testing.T) {
	base := Vertex{
		Position: [3]float32{1, 1, 1},
		Normal:   [3]float32{0, 1, 0},
		Tangent:  [4]float32{1, 0, 0, -1},
	}
	deltas := [MaxTargetCount]TargetDelta{
		{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, -1, 1}, Tangent: [3]float32{-1, 1, 0}},
	}
	w := NewWeightVector(1)

	positionOnly := BlendVertex(base, &deltas, w, AttributePosition)
	assert.Equal(t, [3]float32{2, 1, 1}, positionOnly.Position)
	assert.Equal(t, base.Normal, positionOnly.Normal)
	assert.Equal(t, base.Tangent, positionOnly.Tangent)

	all := BlendVertex(base, &deltas, w, AttributesAll)
	assert.Equal(t, [3]float32{0, 0, 1}, all.Normal, "normals are not renormalized")
	assert.Equal(t, [4]float32{0, 1, 0, -1}, all.Tangent, "tangent handedness is preserved")
}

func TestBlendVertexDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	base, targets := randomMesh(r, 128, MaxTargetCount)
	packed, err := PackDeltas(len(base), targets)
	assert.NoError(t, err)
	w := NewWeightVector(0.1, 0.2, 0.3)

	first := make([]Vertex, len(base))
	second := make([]Vertex, len(base))
	Blend(first, base, packed, w, AttributesAll)
	Blend(second, base, packed, w, AttributesAll)
	assert.Equal(t, first, second)
}

func TestBlendRangeOnlyTouchesRange(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	base, targets := randomMesh(r, 10, 2)
	packed, err := PackDeltas(len(base), targets)
	assert.NoError(t, err)

	dst := make([]Vertex, len(base))
	BlendRange(dst, base, packed, NewWeightVector(1, 1), AttributePosition, 3, 6)

	for i := range dst {
		if i >= 3 && i < 6 {
			assert.NotEqual(t, Vertex{}, dst[i])
			continue
		}
		assert.Equal(t, Vertex{}, dst[i])
	}
}

func TestNewWeightVectorPadsAndTruncates(t *testing.T) {
	w := NewWeightVector(1)
	assert.Equal(t, [MaxTargetCount]float32{1, 0, 0}, w.Weights)
	assert.Equal(t, 1, w.Active)

	w = NewWeightVector(1, 2, 3, 4, 5)
	assert.Equal(t, [MaxTargetCount]float32{1, 2, 3}, w.Weights)
	assert.Equal(t, MaxTargetCount, w.Active)
	assert.Equal(t, []float32{1, 2, 3}, w.Slice())

	assert.Equal(t, 0, ZeroWeights(-2).Active)
	assert.Equal(t, MaxTargetCount, ZeroWeights(10).Active)
}
