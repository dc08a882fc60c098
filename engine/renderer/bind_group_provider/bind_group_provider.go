package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label prefixed to every GPU object created for this provider.
	label string

	// The following fields are GPU allocated resources and must be released when no longer needed. They are populated by the Renderer during initialization, not by user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized with the Renderer.
	bindGroup *wgpu.BindGroup
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// bufferSizes records the allocated size of each buffer, keyed by binding index.
	bufferSizes map[int]uint64
	// readbackBuffers holds MapRead staging buffers used to copy storage buffers back to the host, keyed by binding index.
	readbackBuffers map[int]*wgpu.Buffer

	// bindGroupLayout is borrowed from the pipeline the bind group was created for. It is not released here.
	bindGroupLayout *wgpu.BindGroupLayout
}

// BindGroupProvider holds the buffers and bind group of one compute dispatch target.
// Components (morphers) hold a BindGroupProvider to describe their GPU binding requirements.
// The Renderer then uses this provider to initialize, update and read back GPU resources.
//
// Usage pattern:
//  1. Component creates a BindGroupProvider with a unique label
//  2. Renderer.InitBindGroup(provider, pipelineKey, ...) creates the buffers and bind group
//  3. Component stages BufferWrite values and the Renderer drains them with WriteBuffers
//  4. Renderer.DispatchCompute(pipelineKey, provider, ...) binds BindGroup() on the compute pass
//  5. Renderer.ReadBuffer(provider, binding) copies a storage buffer back to the host
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider.
	// It will clean up all buffers and the bind group, and remove them from their maps.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout the bind group was created against.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer created for a binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns a map of all buffers associated with this provider, keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Buffer: a map of buffers keyed by binding index
	Buffers() map[int]*wgpu.Buffer

	// BufferSize returns the allocated size of the buffer at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the size in bytes, or 0 if no buffer is set
	BufferSize(binding int) uint64

	// ReadbackBuffer returns the MapRead staging buffer for a binding, or nil if none was created.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the staging buffer or nil
	ReadbackBuffer(binding int) *wgpu.Buffer

	// SetBindGroup sets the bind group after GPU initialization.
	// Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout records the layout the bind group was created against.
	// Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - bgl: the pipeline's bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer sets the buffer of a binding after GPU initialization.
	// Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	//   - size: the allocated size in bytes
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)

	// SetReadbackBuffer sets the MapRead staging buffer of a binding.
	// Called by Renderer.ReadBuffer() the first time a binding is read back.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created staging buffer
	SetReadbackBuffer(binding int, buf *wgpu.Buffer)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label used for GPU objects created for this provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:           label,
		buffers:         make(map[int]*wgpu.Buffer),
		bufferSizes:     make(map[int]uint64),
		readbackBuffers: make(map[int]*wgpu.Buffer),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) BufferSize(binding int) uint64 {
	return p.bufferSizes[binding]
}

func (p *bindGroupProvider) ReadbackBuffer(binding int) *wgpu.Buffer {
	return p.readbackBuffers[binding]
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64) {
	if p.buffers == nil {
		p.buffers = make(map[int]*wgpu.Buffer)
		p.bufferSizes = make(map[int]uint64)
	}
	p.buffers[binding] = buf
	p.bufferSizes[binding] = size
}

func (p *bindGroupProvider) SetReadbackBuffer(binding int, buf *wgpu.Buffer) {
	if p.readbackBuffers == nil {
		p.readbackBuffers = make(map[int]*wgpu.Buffer)
	}
	p.readbackBuffers[binding] = buf
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.readbackBuffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.readbackBuffers, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
		delete(p.bufferSizes, i)
	}

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	p.bindGroupLayout = nil
}
