package shader

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-morph/engine/kernels"
)

func resolve(t *testing.T) *kernels.KernelModule {
	t.Helper()
	km, err := kernels.NewResolver(kernels.WithLogger(log.New(io.Discard))).Resolve()
	require.NoError(t, err)
	return km
}

func TestNewShaderLayouts(t *testing.T) {
	km := resolve(t)
	s := NewShader("morph", km)

	assert.Equal(t, "morph", s.Key())
	assert.Equal(t, km.EntryPoint, s.EntryPoint())
	assert.Equal(t, km.Workgroup, s.WorkgroupSize())
	assert.Same(t, km, s.Kernel())

	descriptors := s.BindGroupLayoutDescriptors()
	require.Len(t, descriptors, 1)
	group := s.BindGroupLayoutDescriptor(kernels.GroupMorph)
	require.Len(t, group.Entries, 5)

	want := map[uint32]wgpu.BufferBindingType{
		kernels.BindingParams:  wgpu.BufferBindingTypeUniform,
		kernels.BindingWeights: wgpu.BufferBindingTypeReadOnlyStorage,
		kernels.BindingBase:    wgpu.BufferBindingTypeReadOnlyStorage,
		kernels.BindingDeltas:  wgpu.BufferBindingTypeReadOnlyStorage,
		kernels.BindingOutput:  wgpu.BufferBindingTypeStorage,
	}
	for _, e := range group.Entries {
		assert.Equal(t, want[e.Binding], e.Buffer.Type, "binding %d", e.Binding)
		assert.Equal(t, wgpu.ShaderStageCompute, e.Visibility)
		assert.NotZero(t, e.Buffer.MinBindingSize)
	}
}

func TestShaderVarNames(t *testing.T) {
	s := NewShader("morph", resolve(t))

	assert.Equal(t, "weights", s.BindGroupVarName(0, kernels.BindingWeights))
	assert.Equal(t, "", s.BindGroupVarName(3, 0))

	binding, ok := s.BindGroupFromVarName(0, "blended")
	assert.True(t, ok)
	assert.Equal(t, kernels.BindingOutput, binding)

	_, ok = s.BindGroupFromVarName(0, "camera")
	assert.False(t, ok)
}

func TestShaderModuleUploadsWGSL(t *testing.T) {
	km := resolve(t)
	require.NotEmpty(t, km.SPIRV)

	s := NewShader("morph", km)
	require.NotNil(t, s.Module().WGSLDescriptor)
	assert.Equal(t, km.Source, s.Module().WGSLDescriptor.Code)
	assert.Nil(t, s.Module().SPIRVDescriptor, "the wgpu binding sizes SPIR-V in bytes, not words")
	assert.Equal(t, "morph", s.Module().Label)
}

func TestNewShaderPanicsWithoutKernel(t *testing.T) {
	assert.Panics(t, func() { NewShader("empty", nil) })
}
