package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-morph/engine/model"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
)

var quiet = log.New(io.Discard)

// blobBuffer lays out a three vertex triangle, its indices, one dense morph target and the
// sparse parts of a second target that only moves vertex 1.
func blobBuffer() []byte {
	var buf bytes.Buffer
	put := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	put([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}) // 0: positions
	put([][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}) // 36: normals
	put([]uint16{0, 1, 2, 0})                          // 72: indices + pad
	put([][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}) // 80: target 0 positions
	put([]uint8{1, 0, 0, 0})                           // 116: sparse indices + pad
	put([3]float32{0.5, 0.5, 0})                       // 120: sparse values
	return buf.Bytes()
}

// blobJSON builds the glTF document for blobBuffer. An empty uri leaves the buffer to the GLB BIN chunk.
func blobJSON(uri string) string {
	uriField := ""
	if uri != "" {
		uriField = fmt.Sprintf(`"uri": %q,`, uri)
	}
	return fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"name": "blob_scene", "nodes": [0]}],
  "nodes": [{"mesh": 0}],
  "meshes": [{
    "name": "blob",
    "weights": [0.5, 0.25],
    "extras": {"targetNames": ["smile", "blink"]},
    "primitives": [{
      "attributes": {"POSITION": 0, "NORMAL": 1},
      "indices": 2,
      "targets": [{"POSITION": 3}, {"POSITION": 4}]
    }]
  }],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 2, "componentType": 5123, "count": 3, "type": "SCALAR"},
    {"bufferView": 3, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"componentType": 5126, "count": 3, "type": "VEC3",
     "sparse": {"count": 1, "indices": {"bufferView": 4, "componentType": 5121}, "values": {"bufferView": 5}}}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 36},
    {"buffer": 0, "byteOffset": 72, "byteLength": 6},
    {"buffer": 0, "byteOffset": 80, "byteLength": 36},
    {"buffer": 0, "byteOffset": 116, "byteLength": 1},
    {"buffer": 0, "byteOffset": 120, "byteLength": 12}
  ],
  "buffers": [{%s "byteLength": 132}]
}`, uriField)
}

func blobGLTF() string {
	return blobJSON("data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(blobBuffer()))
}

func blobGLB() []byte {
	pad := func(b []byte, with byte) []byte {
		for len(b)%4 != 0 {
			b = append(b, with)
		}
		return b
	}
	jsonChunk := pad([]byte(blobJSON("")), ' ')
	binChunk := pad(blobBuffer(), 0)

	var out bytes.Buffer
	total := 12 + 8 + len(jsonChunk) + 8 + len(binChunk)
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)})
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(jsonChunk)), ChunkType: gltfGLBChunkJSON})
	out.Write(jsonChunk)
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(binChunk)), ChunkType: gltfGLBChunkBIN})
	out.Write(binChunk)
	return out.Bytes()
}

func assertBlob(t *testing.T, imported *model.ImportedModel) {
	t.Helper()
	require.Len(t, imported.Meshes, 1)
	mesh := imported.Meshes[0]

	assert.Equal(t, "blob", mesh.Name)
	assert.Equal(t, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, mesh.Positions)
	assert.Len(t, mesh.Normals, 3)
	assert.Empty(t, mesh.Tangents)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
	assert.Equal(t, []float32{0.5, 0.25}, mesh.Weights)
	assert.Equal(t, [3]float32{1, 1, 0}, mesh.BoundingMax)

	require.Len(t, mesh.Targets, 2)
	assert.Equal(t, "smile", mesh.Targets[0].Name)
	assert.Equal(t, [3]float32{0, 0, 1}, mesh.Targets[0].Positions[2])
	assert.Equal(t, "blink", mesh.Targets[1].Name)
	assert.Equal(t, [][3]float32{{0, 0, 0}, {0.5, 0.5, 0}, {0, 0, 0}}, mesh.Targets[1].Positions, "sparse target")
	assert.Nil(t, mesh.Targets[1].Normals)
}

func TestLoadReaderGLTF(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, WithLogger(quiet))
	imported, err := l.LoadReader("blob", strings.NewReader(blobGLTF()), false)
	require.NoError(t, err)
	assert.Equal(t, "blob_scene", imported.Name)
	assertBlob(t, imported)
	assert.Same(t, imported, l.Get("blob"))
}

func TestLoadReaderGLB(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, WithLogger(quiet))
	imported, err := l.LoadReader("blob.glb", bytes.NewReader(blobGLB()), true)
	require.NoError(t, err)
	assertBlob(t, imported)
}

func TestLoadFileCachesAndInvalidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.gltf")
	require.NoError(t, os.WriteFile(path, []byte(blobGLTF()), 0o644))

	l := NewLoader(BackendTypeGLTF, WithLogger(quiet))
	first, err := l.Load(path)
	require.NoError(t, err)
	second, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, l.Models(), 1)

	l.Invalidate(path)
	assert.Nil(t, l.Get(path))
	third, err := l.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestLoadMorphMesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.glb")
	require.NoError(t, os.WriteFile(path, blobGLB(), 0o644))
	l := NewLoader(BackendTypeGLTF, WithLogger(quiet))

	mesh, err := l.LoadMorphMesh(path, "")
	require.NoError(t, err)
	require.NoError(t, mesh.Validate())
	assert.Equal(t, []string{"smile", "blink"}, mesh.TargetNames())
	assert.Equal(t, morph.AttributePosition, mesh.Attributes(), "targets carry no normal displacements")
	assert.Equal(t, [morph.MaxTargetCount]float32{0.5, 0.25, 0}, mesh.DefaultWeights().Weights)

	_, err = l.LoadMorphMesh(path, "missing")
	assert.ErrorIs(t, err, ErrMeshNotFound)
}

func TestSelectMeshWithoutTargets(t *testing.T) {
	_, err := SelectMesh(&model.ImportedModel{Meshes: []model.ImportedMesh{{Name: "static"}}}, "")
	assert.ErrorIs(t, err, ErrNoMorphTargets)
}

func TestUnsupportedFormat(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, WithLogger(quiet))
	_, err := l.Load("mesh.obj")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRejectsBadDocuments(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, WithLogger(quiet))

	_, err := l.LoadReader("v1", strings.NewReader(`{"asset": {"version": "1.0"}}`), false)
	assert.ErrorIs(t, err, errInvalidGLTFVersion)

	_, err = l.LoadReader("draco", strings.NewReader(`{"asset": {"version": "2.0"}, "extensionsRequired": ["KHR_draco_mesh_compression"]}`), false)
	assert.ErrorContains(t, err, "KHR_draco_mesh_compression")

	_, err = l.LoadReader("magic", bytes.NewReader(make([]byte, 16)), true)
	assert.ErrorIs(t, err, errInvalidGLBMagic)

	short := strings.Replace(blobGLTF(), `"byteLength": 132`, `"byteLength": 400`, 1)
	_, err = l.LoadReader("short", strings.NewReader(short), false)
	assert.ErrorIs(t, err, errBufferSizeMismatch)
}

func TestRejectsNegativeAndOversizedRanges(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
		want     error
	}{
		{
			name: "negative accessor count",
			old:  `{"bufferView": 0, "componentType": 5126, "count": 3`,
			new:  `{"bufferView": 0, "componentType": 5126, "count": -1`,
			want: errAccessorOutOfRange,
		},
		{
			name: "negative accessor offset",
			old:  `{"bufferView": 0, "componentType": 5126, "count": 3`,
			new:  `{"bufferView": 0, "byteOffset": -12, "componentType": 5126, "count": 3`,
			want: errAccessorOutOfRange,
		},
		{
			name: "count past the view",
			old:  `{"bufferView": 0, "componentType": 5126, "count": 3`,
			new:  `{"bufferView": 0, "componentType": 5126, "count": 1000000000`,
			want: errAccessorOutOfRange,
		},
		{
			name: "negative index count",
			old:  `{"bufferView": 2, "componentType": 5123, "count": 3`,
			new:  `{"bufferView": 2, "componentType": 5123, "count": -3`,
			want: errAccessorOutOfRange,
		},
		{
			name: "negative index offset",
			old:  `{"bufferView": 2, "componentType": 5123, "count": 3`,
			new:  `{"bufferView": 2, "byteOffset": -2, "componentType": 5123, "count": 3`,
			want: errAccessorOutOfRange,
		},
		{
			name: "negative sparse count",
			old:  `"sparse": {"count": 1`,
			new:  `"sparse": {"count": -1`,
			want: errAccessorOutOfRange,
		},
		{
			name: "negative sparse index offset",
			old:  `"indices": {"bufferView": 4, "componentType": 5121}`,
			new:  `"indices": {"bufferView": 4, "byteOffset": -1, "componentType": 5121}`,
			want: errAccessorOutOfRange,
		},
		{
			name: "negative sparse value offset",
			old:  `"values": {"bufferView": 5}`,
			new:  `"values": {"bufferView": 5, "byteOffset": -12}`,
			want: errAccessorOutOfRange,
		},
		{
			name: "negative view length",
			old:  `{"buffer": 0, "byteOffset": 36, "byteLength": 36}`,
			new:  `{"buffer": 0, "byteOffset": 36, "byteLength": -36}`,
			want: errBufferSizeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := blobGLTF()
			require.Contains(t, doc, tt.old)
			doc = strings.Replace(doc, tt.old, tt.new, 1)

			l := NewLoader(BackendTypeGLTF, WithLogger(quiet))
			var err error
			require.NotPanics(t, func() {
				_, err = l.LoadReader("bad", strings.NewReader(doc), false)
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckAccessorRange(t *testing.T) {
	assert.NoError(t, checkAccessorRange(0, 3, 12, 12, 36))
	assert.NoError(t, checkAccessorRange(0, 0, 12, 12, 0))
	assert.NoError(t, checkAccessorRange(4, 2, 16, 12, 32), "the last element may end before the stride")
	assert.ErrorIs(t, checkAccessorRange(4, 2, 16, 12, 31), errAccessorOutOfRange)
	assert.ErrorIs(t, checkAccessorRange(0, 4, 12, 12, 36), errAccessorOutOfRange)
	assert.ErrorIs(t, checkAccessorRange(-1, 1, 12, 12, 36), errAccessorOutOfRange)
	assert.ErrorIs(t, checkAccessorRange(0, -1, 12, 12, 36), errAccessorOutOfRange)
	assert.ErrorIs(t, checkAccessorRange(40, 1, 12, 12, 36), errAccessorOutOfRange)
}

func TestReadComponentNormalization(t *testing.T) {
	assert.Equal(t, float32(1), readComponent([]byte{0x7f}, gltfComponentTypeByte))
	assert.Equal(t, float32(-1), readComponent([]byte{0x80}, gltfComponentTypeByte))
	assert.Equal(t, float32(1), readComponent([]byte{0xff}, gltfComponentTypeUnsignedByte))
	assert.Equal(t, float32(-1), readComponent([]byte{0x01, 0x80}, gltfComponentTypeShort))
	assert.Equal(t, float32(1), readComponent([]byte{0xff, 0xff}, gltfComponentTypeUnsignedShort))
	assert.Equal(t, float32(1.5), readComponent([]byte{0x00, 0x00, 0xc0, 0x3f}, gltfComponentTypeFloat))
}

func TestNodeWeightsOverrideMeshWeights(t *testing.T) {
	meshIndex := 0
	doc := &gltfDocument{
		Meshes: []gltfMesh{{Weights: []float32{0.5}}},
		Nodes:  []gltfNode{{Mesh: &meshIndex, Weights: []float32{1}}},
	}
	assert.Equal(t, []float32{1}, gltfMeshWeights(doc, 0))

	doc.Nodes[0].Weights = nil
	assert.Equal(t, []float32{0.5}, gltfMeshWeights(doc, 0))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.gltf")
	require.NoError(t, os.WriteFile(path, []byte(blobGLTF()), 0o644))

	l := NewLoader(BackendTypeGLTF, WithLogger(quiet))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *model.ImportedModel, 16)
	done := make(chan error, 1)
	go func() {
		done <- l.Watch(ctx, path, func(m *model.ImportedModel, err error) {
			if err == nil {
				reloaded <- m
			}
		})
	}()

	// The watcher starts asynchronously, so keep touching the file until an event lands.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(5 * time.Second)
	var got *model.ImportedModel
	for got == nil {
		select {
		case got = <-reloaded:
		case <-ticker.C:
			require.NoError(t, os.WriteFile(path, []byte(blobGLTF()), 0o644))
		case <-timeout:
			t.Fatal("no reload observed")
		}
	}
	assertBlob(t, got)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
