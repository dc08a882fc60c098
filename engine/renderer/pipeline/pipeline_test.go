package pipeline

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-morph/engine/kernels"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/shader"
)

func TestNewPipeline(t *testing.T) {
	km, err := kernels.NewResolver(kernels.WithLogger(log.New(io.Discard))).Resolve()
	require.NoError(t, err)
	s := shader.NewShader("morph", km)

	p := NewPipeline("morph_blend", WithComputeShader(s))
	assert.Equal(t, "morph_blend", p.PipelineKey())
	assert.Same(t, s, p.Shader())
	assert.Nil(t, p.Pipeline(), "not registered yet")
	assert.Nil(t, p.BindGroupLayout(0))
	assert.Nil(t, p.BindGroupLayout(-1))

	assert.NotPanics(t, p.Release)
}
