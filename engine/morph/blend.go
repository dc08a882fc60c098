package morph

// BlendVertex computes one blended vertex as the base vertex plus the weighted sum of the
// active target deltas:
//
//	position' = position + Σ weight[i] * delta[i].Position, for i < w.Active
//
// Normals and tangents are combined the same way when selected in attrs and copied from the
// base otherwise. Weights are not clamped and the result is not renormalized. Contributions are
// accumulated in slot order 0, 1, 2 so identical inputs produce bit-identical outputs.
// Slots at or beyond w.Active contribute nothing.
//
// Parameters:
//   - base: the base mesh vertex
//   - deltas: the per-slot target deltas for this vertex
//   - w: the blend weights and active slot count
//   - attrs: the attributes to blend
//
// Returns:
//   - Vertex: the blended vertex
func BlendVertex(base Vertex, deltas *[MaxTargetCount]TargetDelta, w WeightVector, attrs Attributes) Vertex {
	out := base
	n := clampActive(w.Active)
	blendNormal := attrs.Has(AttributeNormal)
	blendTangent := attrs.Has(AttributeTangent)

	for i := 0; i < n; i++ {
		wi := w.Weights[i]
		d := &deltas[i]
		// float32() conversions stop the compiler fusing multiply-add, which would change rounding per architecture.
		for k := range 3 {
			out.Position[k] += float32(wi * d.Position[k])
		}
		if blendNormal {
			for k := range 3 {
				out.Normal[k] += float32(wi * d.Normal[k])
			}
		}
		if blendTangent {
			for k := range 3 {
				out.Tangent[k] += float32(wi * d.Tangent[k])
			}
		}
	}
	return out
}

// BlendRange blends the vertices in [start, end) from a packed target-major delta buffer
// (deltas[t*len(base)+v]) into dst. Buffer lengths are the caller's contract: dst and base must
// cover end, and deltas must cover w.Active targets of len(base) vertices each.
//
// Parameters:
//   - dst: the output vertices
//   - base: the base mesh vertices
//   - deltas: the packed target deltas (see PackDeltas)
//   - w: the blend weights
//   - attrs: the attributes to blend
//   - start: the first vertex index to blend
//   - end: one past the last vertex index to blend
func BlendRange(dst, base []Vertex, deltas []TargetDelta, w WeightVector, attrs Attributes, start, end int) {
	vertexCount := len(base)
	n := clampActive(w.Active)

	var slot [MaxTargetCount]TargetDelta
	for v := start; v < end; v++ {
		for t := 0; t < n; t++ {
			slot[t] = deltas[t*vertexCount+v]
		}
		dst[v] = BlendVertex(base[v], &slot, w, attrs)
	}
}

// Blend blends every vertex of base into dst. See BlendRange.
//
// Parameters:
//   - dst: the output vertices, at least len(base) long
//   - base: the base mesh vertices
//   - deltas: the packed target deltas
//   - w: the blend weights
//   - attrs: the attributes to blend
func Blend(dst, base []Vertex, deltas []TargetDelta, w WeightVector, attrs Attributes) {
	BlendRange(dst, base, deltas, w, attrs, 0, len(base))
}
