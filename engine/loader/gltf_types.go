// gltf_types.go holds the subset of the glTF 2.0 JSON schema needed to import base meshes and
// their morph targets. Materials, textures, skins and animations are not decoded; encoding/json
// skips their keys.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

// gltfDocument is the root of a glTF JSON document.
type gltfDocument struct {
	Asset       gltfAsset        `json:"asset"`
	Scene       *int             `json:"scene,omitempty"`
	Scenes      []gltfScene      `json:"scenes,omitempty"`
	Nodes       []gltfNode       `json:"nodes,omitempty"`
	Meshes      []gltfMesh       `json:"meshes,omitempty"`
	Accessors   []gltfAccessor   `json:"accessors,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`

	// ExtensionsRequired lists extensions the asset cannot be loaded without.
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`
}

// gltfAsset contains metadata about the glTF asset.
type gltfAsset struct {
	// Version is the glTF version (required, must be "2.0").
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

// gltfScene is a named set of root nodes.
type gltfScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// gltfNode is only read for node level morph weights, which override mesh.weights.
type gltfNode struct {
	Name    string    `json:"name,omitempty"`
	Mesh    *int      `json:"mesh,omitempty"`
	Weights []float32 `json:"weights,omitempty"`
}

// gltfMesh is a set of primitives sharing one set of morph target weights.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#morph-targets
type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`

	// Weights are the default morph target weights.
	Weights []float32 `json:"weights,omitempty"`

	Extras *gltfMeshExtras `json:"extras,omitempty"`
}

// gltfMeshExtras carries the de facto target naming convention used by Blender and three.js.
type gltfMeshExtras struct {
	TargetNames []string `json:"targetNames,omitempty"`
}

// gltfPrimitive is one draw of a mesh.
type gltfPrimitive struct {
	// Attributes maps attribute semantics (POSITION, NORMAL, TANGENT, ...) to accessor indices.
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`

	// Mode is the topology, TRIANGLES when absent.
	Mode *int `json:"mode,omitempty"`

	// Targets are the morph targets, each mapping POSITION, NORMAL or TANGENT to a displacement accessor.
	Targets []map[string]int `json:"targets,omitempty"`
}

// Attribute semantics read by the importer.
const (
	gltfAttributePosition = "POSITION"
	gltfAttributeNormal   = "NORMAL"
	gltfAttributeTangent  = "TANGENT"
)

const gltfPrimitiveModeTriangles = 4

// gltfAccessor describes how to read typed elements out of a buffer view.
type gltfAccessor struct {
	Name string `json:"name,omitempty"`

	// BufferView may be absent, in which case the accessor is all zeros unless sparse substitutes values.
	BufferView    *int   `json:"bufferView,omitempty"`
	ByteOffset    int    `json:"byteOffset,omitempty"`
	ComponentType int    `json:"componentType"`
	Normalized    bool   `json:"normalized,omitempty"`
	Count         int    `json:"count"`
	Type          string `json:"type"`

	Sparse *gltfAccessorSparse `json:"sparse,omitempty"`
}

// Accessor component types.
const (
	gltfComponentTypeByte          = 5120
	gltfComponentTypeUnsignedByte  = 5121
	gltfComponentTypeShort         = 5122
	gltfComponentTypeUnsignedShort = 5123
	gltfComponentTypeUnsignedInt   = 5125
	gltfComponentTypeFloat         = 5126
)

// Accessor element types.
const (
	gltfAccessorTypeScalar = "SCALAR"
	gltfAccessorTypeVec2   = "VEC2"
	gltfAccessorTypeVec3   = "VEC3"
	gltfAccessorTypeVec4   = "VEC4"
	gltfAccessorTypeMat2   = "MAT2"
	gltfAccessorTypeMat3   = "MAT3"
	gltfAccessorTypeMat4   = "MAT4"
)

// gltfAccessorSparse replaces Count elements of the dense accessor, the usual encoding for
// morph targets that move only part of a mesh.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#sparse-accessors
type gltfAccessorSparse struct {
	Count   int                       `json:"count"`
	Indices gltfAccessorSparseIndices `json:"indices"`
	Values  gltfAccessorSparseValues  `json:"values"`
}

// gltfAccessorSparseIndices locates the strictly increasing element indices to replace.
type gltfAccessorSparseIndices struct {
	BufferView    int `json:"bufferView"`
	ByteOffset    int `json:"byteOffset,omitempty"`
	ComponentType int `json:"componentType"`
}

// gltfAccessorSparseValues locates the tightly packed replacement elements.
type gltfAccessorSparseValues struct {
	BufferView int `json:"bufferView"`
	ByteOffset int `json:"byteOffset,omitempty"`
}

// gltfBufferView is a byte range of a buffer.
type gltfBufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`
}

// gltfBuffer is a block of binary data, external, embedded as a data URI, or the GLB BIN chunk.
type gltfBuffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`

	// Data holds the loaded bytes. Populated during parsing.
	Data []byte `json:"-"`
}

// --- GLB Binary Format ---
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification

// gltfGLBHeader is the 12 byte GLB file header.
type gltfGLBHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

// gltfGLBChunkHeader precedes each GLB chunk.
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

const (
	gltfGLBMagic     = 0x46546C67 // "glTF"
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON"
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0"
)
