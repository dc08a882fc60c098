package main

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-morph/engine/model"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
)

// writeFixture writes a one triangle glTF with a "raise" and a "slide" target.
func writeFixture(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, // base
		{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, // raise
		{1, 0, 0}, {1, 0, 0}, {1, 0, 0}, // slide
	}))
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "meshes": [{
    "name": "tri",
    "extras": {"targetNames": ["raise", "slide"]},
    "primitives": [{"attributes": {"POSITION": 0}, "targets": [{"POSITION": 1}, {"POSITION": 2}]}]
  }],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 0, "byteOffset": 36, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 0, "byteOffset": 72, "componentType": 5126, "count": 3, "type": "VEC3"}
  ],
  "bufferViews": [{"buffer": 0, "byteLength": 108}],
  "buffers": [{"uri": %q, "byteLength": 108}]
}`, uri)
	path := filepath.Join(t.TempDir(), "tri.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestBlendCommand(t *testing.T) {
	path := writeFixture(t)
	out, err := execute(t, "blend", path, "--backend", "cpu", "--weights", "slide=0.5,raise=1", "--compact")
	require.NoError(t, err)

	var doc blendJSON
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "tri", doc.Mesh)
	assert.Equal(t, "cpu", doc.Backend)
	assert.Equal(t, []string{"raise", "slide"}, doc.Targets)
	assert.Equal(t, []float32{1, 0.5}, doc.Weights)
	require.Len(t, doc.Vertices, 3)
	assert.Equal(t, [3]float32{1.5, 0, 1}, doc.Vertices[1].Position)
	assert.Nil(t, doc.Vertices[1].Normal)
}

func TestBlendCommandErrors(t *testing.T) {
	path := writeFixture(t)
	_, err := execute(t, "blend", path, "--backend", "cpu", "--weights", "wink=1")
	assert.ErrorContains(t, err, `no target "wink"`)

	_, err = execute(t, "blend", path, "--backend", "quantum")
	assert.Error(t, err)

	_, err = execute(t, "blend", filepath.Join(t.TempDir(), "missing.gltf"), "--backend", "cpu")
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	out, err := execute(t, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "entry point: morph_blend")
	assert.Contains(t, out, fmt.Sprintf("max targets: %d", morph.MaxTargetCount))
	assert.Contains(t, out, "read_write")
}

func TestPlayCommandStopsAfterDuration(t *testing.T) {
	path := writeFixture(t)
	_, err := execute(t, "play", path, "--backend", "cpu", "--for", "100ms", "--duration", "0.02", "--mode", "spring")
	assert.NoError(t, err)
}

func TestParseWeights(t *testing.T) {
	mesh := model.NewMorphMesh(
		model.WithName("tri"),
		model.WithPositions([][3]float32{{0, 0, 0}}),
		model.WithTarget("a", [][3]float32{{1, 0, 0}}, nil, nil),
		model.WithTarget("b", [][3]float32{{0, 1, 0}}, nil, nil),
	)

	w, err := parseWeights("0.5, 0.25", mesh)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, w.Slice())

	w, err = parseWeights("b=1", mesh)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, w.Slice())

	w, err = parseWeights("", mesh)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Active)

	for _, bad := range []string{"1,2,3", "a=1,0.5", "x", "c=1"} {
		_, err := parseWeights(bad, mesh)
		assert.Error(t, err, bad)
	}
}

func TestParseAnimation(t *testing.T) {
	anim, err := parseAnimation("Spring", 2, 0.3)
	require.NoError(t, err)
	assert.Equal(t, morph.Spring(2, 0.3), anim)

	_, err = parseAnimation("bezier", 1, 0)
	assert.Error(t, err)
}
