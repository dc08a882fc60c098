package bind_group_provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBindGroupProviderLabel(t *testing.T) {
	p := NewBindGroupProvider("fox morpher")
	assert.Equal(t, "fox morpher", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.Buffer(0))
	assert.Zero(t, p.BufferSize(0))
	assert.Nil(t, p.ReadbackBuffer(4))
	assert.Empty(t, p.Buffers())
}

func TestBufferWriteBounds(t *testing.T) {
	w := BufferWrite{Offset: 16, Data: make([]byte, 32)}
	assert.Equal(t, uint64(48), w.End())
	assert.False(t, w.Fits(), "no provider")

	w.Provider = NewBindGroupProvider("empty")
	assert.False(t, w.Fits(), "no buffer at binding")
}

func TestReleaseWithoutGPUResources(t *testing.T) {
	p := NewBindGroupProvider("idle")
	assert.NotPanics(t, p.Release)
	assert.Nil(t, p.BindGroupLayout())
}
