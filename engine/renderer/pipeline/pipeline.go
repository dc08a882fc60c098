package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/shader"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the compute shader and the WebGPU objects created for it by the renderer.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	// computeShader is required to be set before registering the pipeline with a renderer
	computeShader shader.Shader

	// The following fields are GPU allocated resources populated by the renderer during registration.

	// computePipeline is the created compute pipeline, or nil if not registered
	computePipeline *wgpu.ComputePipeline
	// bindGroupLayouts holds the layouts the pipeline layout was created from, indexed by group
	bindGroupLayouts []*wgpu.BindGroupLayout
}

// Pipeline is a compute pipeline wrapping one compute shader. Bind groups created for a
// pipeline must use the layouts returned by BindGroupLayout so they stay compatible with it.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader returns the compute shader of this pipeline, or nil if not set.
	//
	// Returns:
	//   - shader.Shader: the compute shader
	Shader() shader.Shader

	// Pipeline returns the created compute pipeline, or nil before registration.
	//
	// Returns:
	//   - *wgpu.ComputePipeline: the compute pipeline
	Pipeline() *wgpu.ComputePipeline

	// BindGroupLayout returns the bind group layout created for a group index.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil if the group is not used or the pipeline is not registered
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// SetComputePipeline sets the compute pipeline.
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline to set
	SetComputePipeline(p *wgpu.ComputePipeline)

	// SetBindGroupLayouts sets the bind group layouts the pipeline layout was created from.
	//
	// Parameters:
	//   - layouts: the layouts indexed by group
	SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout)

	// Release releases the GPU objects held by this pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new compute Pipeline.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: pipelineKey,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.computeShader
}

func (p *pipeline) Pipeline() *wgpu.ComputePipeline {
	return p.computePipeline
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.bindGroupLayouts) {
		return nil
	}
	return p.bindGroupLayouts[group]
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout) {
	p.bindGroupLayouts = layouts
}

func (p *pipeline) Release() {
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	for _, l := range p.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
	}
	p.bindGroupLayouts = nil
}
