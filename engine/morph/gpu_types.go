package morph

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMorphVertexSource is the canonical WGSL definition of the MorphVertex struct.
// Matches GPUMorphVertex layout exactly (48 bytes, std430 aligned).
//
//go:embed assets/morph_vertex.wgsl
var GPUMorphVertexSource string

// GPUMorphVertex is the GPU-aligned representation of a vertex or a target delta.
// Base vertices, packed deltas and blended output all share this layout.
// Size: 48 bytes (std430 aligned).
type GPUMorphVertex struct {
	Position [3]float32 // offset 0
	_pad0    float32    // offset 12: implicit vec3 pad
	Normal   [3]float32 // offset 16
	_pad1    float32    // offset 28: implicit vec3 pad
	Tangent  [4]float32 // offset 32
}

// Size returns the size of the GPUMorphVertex struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUMorphVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMorphVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUMorphVertex) Marshal() []byte {
	buf := make([]byte, 48)
	g.marshalInto(buf)
	return buf
}

func (g *GPUMorphVertex) marshalInto(buf []byte) {
	putVec(buf[0:12], g.Position[:])
	binary.LittleEndian.PutUint32(buf[12:16], 0) // _pad0
	putVec(buf[16:28], g.Normal[:])
	binary.LittleEndian.PutUint32(buf[28:32], 0) // _pad1
	putVec(buf[32:48], g.Tangent[:])
}

func (g *GPUMorphVertex) unmarshalFrom(buf []byte) {
	getVec(buf[0:12], g.Position[:])
	getVec(buf[16:28], g.Normal[:])
	getVec(buf[32:48], g.Tangent[:])
}

// GPUBlendParamsSource is the canonical WGSL definition of the BlendParams struct.
// Matches GPUBlendParams layout exactly (16 bytes, uniform aligned).
//
//go:embed assets/blend_params.wgsl
var GPUBlendParamsSource string

// GPUBlendParams is the per-dispatch uniform of the blend kernel.
// Size: 16 bytes.
type GPUBlendParams struct {
	VertexCount uint32 // offset 0
	ActiveCount uint32 // offset 4: number of active target slots, at most MaxTargetCount
	Attributes  uint32 // offset 8: Attributes bit mask
	_pad0       uint32 // offset 12
}

// Size returns the size of the GPUBlendParams struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUBlendParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUBlendParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUBlendParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], g.VertexCount)
	binary.LittleEndian.PutUint32(buf[4:8], g.ActiveCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.Attributes)
	binary.LittleEndian.PutUint32(buf[12:16], 0) // _pad0
	return buf
}

// NewGPUBlendParams builds the kernel uniform for one dispatch.
//
// Parameters:
//   - vertexCount: the number of vertices to blend
//   - w: the weights whose active count is uploaded
//   - attrs: the attributes to blend
//
// Returns:
//   - GPUBlendParams: the populated uniform
func NewGPUBlendParams(vertexCount int, w WeightVector, attrs Attributes) GPUBlendParams {
	return GPUBlendParams{
		VertexCount: uint32(vertexCount),
		ActiveCount: uint32(clampActive(w.Active)),
		Attributes:  uint32(attrs | AttributePosition),
	}
}

// WeightsSize is the byte size of the kernel's weight buffer (array<f32, MAX_TARGET_COUNT>).
const WeightsSize = MaxTargetCount * 4

// MarshalWeights serializes all MaxTargetCount weight slots for the kernel's weight buffer.
// Slots at or beyond w.Active are written as zero.
//
// Parameters:
//   - w: the weights to serialize
//
// Returns:
//   - []byte: WeightsSize bytes ready for GPU upload
func MarshalWeights(w WeightVector) []byte {
	buf := make([]byte, WeightsSize)
	n := clampActive(w.Active)
	for i := range n {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(w.Weights[i]))
	}
	return buf
}

// MarshalVertices serializes base vertices into GPUMorphVertex layout.
//
// Parameters:
//   - vertices: the vertices to serialize
//
// Returns:
//   - []byte: len(vertices)*48 bytes ready for GPU upload
func MarshalVertices(vertices []Vertex) []byte {
	var g GPUMorphVertex
	stride := g.Size()
	buf := make([]byte, len(vertices)*stride)
	for i, v := range vertices {
		g = GPUMorphVertex{Position: v.Position, Normal: v.Normal, Tangent: v.Tangent}
		g.marshalInto(buf[i*stride : (i+1)*stride])
	}
	return buf
}

// MarshalDeltas serializes packed target deltas into GPUMorphVertex layout. Tangent W is zero.
//
// Parameters:
//   - deltas: the packed deltas to serialize
//
// Returns:
//   - []byte: len(deltas)*48 bytes ready for GPU upload
func MarshalDeltas(deltas []TargetDelta) []byte {
	var g GPUMorphVertex
	stride := g.Size()
	buf := make([]byte, len(deltas)*stride)
	for i, d := range deltas {
		g = GPUMorphVertex{Position: d.Position, Normal: d.Normal}
		copy(g.Tangent[:3], d.Tangent[:])
		g.marshalInto(buf[i*stride : (i+1)*stride])
	}
	return buf
}

// UnmarshalVertices decodes GPUMorphVertex data read back from the GPU into dst.
// Decoding stops at whichever of dst or buf runs out first.
//
// Parameters:
//   - dst: the vertices to fill
//   - buf: the raw GPU buffer contents
//
// Returns:
//   - int: the number of vertices decoded
func UnmarshalVertices(dst []Vertex, buf []byte) int {
	var g GPUMorphVertex
	stride := g.Size()
	n := min(len(dst), len(buf)/stride)
	for i := range n {
		g.unmarshalFrom(buf[i*stride : (i+1)*stride])
		dst[i] = Vertex{Position: g.Position, Normal: g.Normal, Tangent: g.Tangent}
	}
	return n
}

func putVec(buf []byte, v []float32) {
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(f))
	}
}

func getVec(buf []byte, v []float32) {
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : (i+1)*4]))
	}
}
