package morpher

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-morph/engine/model"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer"
)

var quiet = log.New(io.Discard)

// gridMesh builds a mesh of n vertices on a line with two targets: one lifting every vertex
// along Z and one pushing odd vertices along X.
func gridMesh(n int) model.MorphMesh {
	positions := make([][3]float32, n)
	normals := make([][3]float32, n)
	lift := make([][3]float32, n)
	push := make([][3]float32, n)
	tilt := make([][3]float32, n)
	for i := range n {
		positions[i] = [3]float32{float32(i), 0, 0}
		normals[i] = [3]float32{0, 0, 1}
		lift[i] = [3]float32{0, 0, 1}
		tilt[i] = [3]float32{0, 1, -1}
		if i%2 == 1 {
			push[i] = [3]float32{0.5, 0, 0}
		}
	}
	return model.NewMorphMesh(
		model.WithName("grid"),
		model.WithPositions(positions),
		model.WithNormals(normals),
		model.WithTarget("lift", lift, tilt, nil),
		model.WithTarget("push", push, make([][3]float32, n), nil),
	)
}

func reference(mesh model.MorphMesh, w morph.WeightVector, attrs morph.Attributes) []morph.Vertex {
	base := mesh.BaseVertices()
	deltas, _ := morph.PackDeltas(len(base), mesh.Targets())
	out := make([]morph.Vertex, len(base))
	morph.Blend(out, base, deltas, w, attrs)
	return out
}

func TestNewMorpherValidatesMesh(t *testing.T) {
	empty := model.NewMorphMesh(model.WithName("empty"))
	_, err := NewMorpher(BackendTypeCPU, empty, WithLogger(quiet))
	assert.ErrorIs(t, err, morph.ErrMissingBaseMesh)

	noTargets := model.NewMorphMesh(model.WithPositions([][3]float32{{0, 0, 0}}))
	_, err = NewMorpher(BackendTypeCPU, noTargets, WithLogger(quiet))
	assert.ErrorIs(t, err, morph.ErrInvalidNumberOfTargets)

	_, err = NewMorpher(BackendTypeCPU, nil)
	assert.ErrorIs(t, err, morph.ErrMissingBaseMesh)
}

func TestGPUBackendRequiresRenderer(t *testing.T) {
	_, err := NewMorpher(BackendTypeGPU, gridMesh(4), WithLogger(quiet))
	assert.ErrorIs(t, err, ErrNoRenderer)
}

func TestAttributeSelection(t *testing.T) {
	m, err := NewMorpher(BackendTypeCPU, gridMesh(4), WithLogger(quiet))
	require.NoError(t, err)
	defer m.Release()
	assert.Equal(t, morph.AttributePosition|morph.AttributeNormal, m.Attributes())

	m, err = NewMorpher(BackendTypeCPU, gridMesh(4), WithLogger(quiet), WithAttributes(morph.AttributeTangent))
	require.NoError(t, err)
	defer m.Release()
	assert.Equal(t, morph.AttributePosition, m.Attributes(), "tangents are not carried by the mesh")

	m, err = NewMorpher(BackendTypeCPU, gridMesh(4), WithLogger(quiet), WithAttributes(morph.AttributePosition), WithDebugNormals(true))
	require.NoError(t, err)
	defer m.Release()
	assert.Equal(t, morph.AttributePosition|morph.AttributeNormal, m.Attributes())
}

func TestCPUBlend(t *testing.T) {
	mesh := gridMesh(6)
	m, err := NewMorpher(BackendTypeCPU, mesh, WithLogger(quiet))
	require.NoError(t, err)
	defer m.Release()

	assert.True(t, m.Dirty())
	assert.Equal(t, mesh.BaseVertices(), m.Output(), "output starts as the base mesh")

	w := morph.NewWeightVector(0.5, 1)
	m.SetTargetWeights(w, morph.Immediate)
	require.NoError(t, m.Blend())
	assert.False(t, m.Dirty())

	out := m.Output()
	assert.Equal(t, reference(mesh, w, m.Attributes()), out)
	assert.Equal(t, [3]float32{3.5, 0, 0.5}, out[3].Position)
	assert.Equal(t, [3]float32{0, 0.5, 0.5}, out[3].Normal)

	m.SetTargetWeights(morph.NewWeightVector(), morph.Immediate)
	require.NoError(t, m.Blend())
	assert.Equal(t, mesh.BaseVertices(), m.Output(), "zero weights give the base mesh")
}

func TestCPUChunkedBlendOnSharedPool(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(4, 64, time.Second)
	t.Cleanup(pool.Stop)

	mesh := gridMesh(1000)
	w := morph.NewWeightVector(0.25, -0.75)

	var morphers []Morpher
	for range 3 {
		m, err := NewMorpher(BackendTypeCPU, mesh, WithLogger(quiet), WithComputePool(pool), WithChunkSize(64))
		require.NoError(t, err)
		t.Cleanup(m.Release)
		m.SetTargetWeights(w, morph.Immediate)
		morphers = append(morphers, m)
	}

	var wg sync.WaitGroup
	for _, m := range morphers {
		m.Submit(&wg)
	}
	wg.Wait()

	want := reference(mesh, w, morph.AttributePosition|morph.AttributeNormal)
	for _, m := range morphers {
		assert.False(t, m.Dirty())
		assert.Equal(t, want, m.Output())
	}
}

func TestUpdateAnimatesWeights(t *testing.T) {
	m, err := NewMorpher(BackendTypeCPU, gridMesh(4), WithLogger(quiet))
	require.NoError(t, err)
	defer m.Release()
	require.NoError(t, m.Blend())

	assert.False(t, m.Update(1), "nothing to animate")

	m.SetTargetWeights(morph.NewWeightVector(1, 0), morph.Linear(2))
	assert.True(t, m.Animating())

	require.True(t, m.Update(1))
	assert.InDelta(t, 0.5, m.Weights().Weights[0], 1e-6)
	assert.True(t, m.Dirty())

	require.True(t, m.Update(1))
	assert.InDelta(t, 1, m.Weights().Weights[0], 1e-6)

	assert.False(t, m.Update(1), "completion repeats the final weights")
	assert.False(t, m.Animating())
	assert.False(t, m.Update(1))
}

func TestSetNamedWeights(t *testing.T) {
	m, err := NewMorpher(BackendTypeCPU, gridMesh(4), WithLogger(quiet))
	require.NoError(t, err)
	defer m.Release()

	require.NoError(t, m.SetNamedWeights(map[string]float32{"push": 0.75}, morph.Immediate))
	assert.Equal(t, [morph.MaxTargetCount]float32{0, 0.75, 0}, m.Weights().Weights)
	assert.Equal(t, 2, m.Weights().Active)

	err = m.SetNamedWeights(map[string]float32{"missing": 1}, morph.Immediate)
	assert.ErrorIs(t, err, ErrUnknownTarget)
	assert.Equal(t, float32(0.75), m.Weights().Weights[1])
}

func TestSetTargetWeightsKeepsActiveCount(t *testing.T) {
	mesh := gridMesh(4)
	m, err := NewMorpher(BackendTypeCPU, mesh, WithLogger(quiet))
	require.NoError(t, err)
	defer m.Release()

	m.SetTargetWeights(morph.NewWeightVector(1, 1, 1).WithActive(1), morph.Immediate)
	assert.Equal(t, 1, m.Weights().Active)
	require.NoError(t, m.Blend())

	liftOnly := reference(mesh, morph.NewWeightVector(1), m.Attributes())
	assert.Equal(t, liftOnly, m.Output(), "slots past the active count do not contribute")
	assert.Equal(t, float32(1), m.Output()[1].Position[0], "push is inactive")

	m.SetTargetWeights(morph.NewWeightVector(1, 1, 1), morph.Immediate)
	assert.Equal(t, mesh.TargetCount(), m.Weights().Active, "capped at the target count")

	m.SetTargetWeights(morph.ZeroWeights(1), morph.Immediate)
	require.NoError(t, m.SetNamedWeights(map[string]float32{"push": 0.5}, morph.Immediate))
	assert.Equal(t, 2, m.Weights().Active, "a named slot becomes active")
}

func TestCPUBackendNoOps(t *testing.T) {
	m, err := NewMorpher(BackendTypeCPU, gridMesh(4), WithLogger(quiet))
	require.NoError(t, err)
	defer m.Release()

	m.PrepareFrame()
	assert.Empty(t, m.StagedWriteData())
	assert.Nil(t, m.ComputeBindGroupProvider())
	assert.Empty(t, m.PipelineKey())
	assert.Zero(t, m.WorkgroupCount())
	assert.NoError(t, m.ReadBack())
	assert.True(t, m.Dirty(), "read back does not blend on the CPU backend")
}

// gpuRenderer opens a hardware adapter, falling back to a software one (lavapipe, SwiftShader or
// WARP) so the kernel still runs through wgpu's own validation on machines without a GPU.
func gpuRenderer(t *testing.T) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, renderer.WithLogger(quiet))
	if err != nil {
		r, err = renderer.NewRenderer(renderer.BackendTypeWGPU, renderer.WithLogger(quiet), renderer.WithForceFallbackAdapter(true))
	}
	if err != nil {
		t.Skipf("no GPU or software adapter available: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func TestGPUBlendMatchesCPU(t *testing.T) {
	r := gpuRenderer(t)

	mesh := gridMesh(130)
	g, err := NewMorpher(BackendTypeGPU, mesh, WithLogger(quiet), WithRenderer(r))
	require.NoError(t, err)
	t.Cleanup(g.Release)

	assert.Equal(t, DefaultPipelineKey, g.PipelineKey())
	assert.Equal(t, [3]uint32{3, 1, 1}, g.WorkgroupCount())

	w := morph.NewWeightVector(0.3, 0.6)
	g.SetTargetWeights(w, morph.Immediate)
	require.NoError(t, g.Blend())
	assert.False(t, g.Dirty())

	want := reference(mesh, w, g.Attributes())
	got := g.Output()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDeltaSlice(t, want[i].Position[:], got[i].Position[:], 1e-5, "vertex %d", i)
		assert.InDeltaSlice(t, want[i].Normal[:], got[i].Normal[:], 1e-5, "vertex %d", i)
	}
}
