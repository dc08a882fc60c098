package model

import "github.com/chewxy/math32"

// ComputeBoundingRadius calculates the bounding sphere radius for a set of positions.
// The radius is the maximum distance of any position from the origin.
//
// Parameters:
//   - positions: the vertex positions to measure
//
// Returns:
//   - float32: the bounding sphere radius
func ComputeBoundingRadius(positions [][3]float32) float32 {
	var maxDistSq float32
	for _, p := range positions {
		distSq := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		if distSq > maxDistSq {
			maxDistSq = distSq
		}
	}
	return math32.Sqrt(maxDistSq)
}

// ComputeBounds returns the axis-aligned bounding box of a set of positions.
// An empty set yields a zero box.
//
// Parameters:
//   - positions: the vertex positions to measure
//
// Returns:
//   - [3]float32: the minimum corner
//   - [3]float32: the maximum corner
func ComputeBounds(positions [][3]float32) (minCorner, maxCorner [3]float32) {
	if len(positions) == 0 {
		return
	}
	minCorner, maxCorner = positions[0], positions[0]
	for _, p := range positions[1:] {
		for k := range 3 {
			minCorner[k] = math32.Min(minCorner[k], p[k])
			maxCorner[k] = math32.Max(maxCorner[k], p[k])
		}
	}
	return
}
