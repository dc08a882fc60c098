package renderer

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-morph/engine/kernels"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/shader"
)

const testPipeline = "test_morph_blend"

// newTestRenderer returns a renderer with the blend pipeline registered, or skips the test
// when the machine has no usable adapter.
func newTestRenderer(t *testing.T) Renderer {
	t.Helper()
	quiet := log.New(io.Discard)
	r, err := NewRenderer(BackendTypeWGPU, WithLogger(quiet))
	if err != nil {
		t.Skipf("no GPU adapter available: %v", err)
	}
	t.Cleanup(r.Release)

	km, err := kernels.NewResolver(kernels.WithLogger(quiet)).Resolve()
	require.NoError(t, err)
	p := pipeline.NewPipeline(testPipeline, pipeline.WithComputeShader(shader.NewShader(testPipeline, km)))
	require.NoError(t, r.RegisterPipelines(p))
	return r
}

func TestRegisterPipelinesIsIdempotent(t *testing.T) {
	r := newTestRenderer(t)
	p := r.Pipeline(testPipeline)
	require.NotNil(t, p)
	assert.NotNil(t, p.Pipeline())
	assert.NotNil(t, p.BindGroupLayout(kernels.GroupMorph))

	require.NoError(t, r.RegisterPipelines(p))
	assert.Len(t, r.Pipelines(), 1)
}

func TestWriteAndReadBack(t *testing.T) {
	r := newTestRenderer(t)
	provider := bind_group_provider.NewBindGroupProvider("roundtrip")
	t.Cleanup(provider.Release)

	var v morph.GPUMorphVertex
	stride := uint64(v.Size())
	sizes := map[int]uint64{
		kernels.BindingBase:   4 * stride,
		kernels.BindingDeltas: 4 * stride * morph.MaxTargetCount,
		kernels.BindingOutput: 4 * stride,
	}
	require.NoError(t, r.InitBindGroup(provider, testPipeline, kernels.GroupMorph, nil, sizes))
	assert.Equal(t, 4*stride, provider.BufferSize(kernels.BindingOutput))

	vertices := []morph.Vertex{
		{Position: [3]float32{1, 2, 3}},
		{Position: [3]float32{4, 5, 6}},
		{Position: [3]float32{7, 8, 9}},
		{Position: [3]float32{-1, -2, -3}, Tangent: [4]float32{0, 0, 1, -1}},
	}
	require.NoError(t, r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: provider, Binding: kernels.BindingOutput, Data: morph.MarshalVertices(vertices)},
	}))

	data, err := r.ReadBuffer(provider, kernels.BindingOutput, 0)
	require.NoError(t, err)
	got := make([]morph.Vertex, len(vertices))
	assert.Equal(t, len(vertices), morph.UnmarshalVertices(got, data))
	assert.Equal(t, vertices, got)
}

func TestRendererErrors(t *testing.T) {
	r := newTestRenderer(t)
	provider := bind_group_provider.NewBindGroupProvider("errors")
	t.Cleanup(provider.Release)

	err := r.InitBindGroup(provider, "missing", 0, nil, nil)
	assert.ErrorIs(t, err, ErrPipelineNotFound)

	err = r.DispatchCompute(testPipeline, provider, [3]uint32{1, 1, 1})
	assert.ErrorIs(t, err, ErrNoComputeFrame)

	_, err = r.ReadBuffer(provider, kernels.BindingOutput, 0)
	assert.ErrorIs(t, err, ErrBufferNotFound)

	require.NoError(t, r.InitBindGroup(provider, testPipeline, kernels.GroupMorph, nil, nil))
	err = r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: provider, Binding: kernels.BindingParams, Offset: 8, Data: make([]byte, 16)},
	})
	assert.ErrorIs(t, err, ErrBufferOutOfBounds)

	assert.NoError(t, r.EndComputeFrame(), "ending without a frame is a no-op")
}
