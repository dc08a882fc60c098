package morpher

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-morph/common"
	"github.com/Carmen-Shannon/oxy-morph/engine/kernels"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/shader"
)

// DefaultPipelineKey is the renderer pipeline key the GPU backend registers the blend kernel under.
const DefaultPipelineKey = "morph_blend"

// gpuMorpherBackendImpl blends with the morph blend compute kernel.
type gpuMorpherBackendImpl struct {
	mu *sync.Mutex

	renderer    renderer.Renderer
	kernel      *kernels.KernelModule
	pipelineKey string

	// computeProvider holds the five kernel buffers and the bind group over them.
	computeProvider bind_group_provider.BindGroupProvider

	vertexCount int
	workgroups  [3]uint32

	stagedWriteData []bind_group_provider.BufferWrite

	// Reusable staging buffers. queue.WriteBuffer copies before returning, so reuse across frames is safe.
	stagingParams, stagingWeights []byte
}

var _ MorpherBackend = &gpuMorpherBackendImpl{}

// newGPUMorpherBackend creates a compute kernel blend backend.
//
// Parameters:
//   - r: the renderer to create resources on
//   - km: the resolved kernel, or nil to resolve the process-wide kernel on Init
//   - pipelineKey: the renderer pipeline key, DefaultPipelineKey when empty
//   - label: the label of the compute provider
//
// Returns:
//   - *gpuMorpherBackendImpl: the backend
func newGPUMorpherBackend(r renderer.Renderer, km *kernels.KernelModule, pipelineKey, label string) *gpuMorpherBackendImpl {
	return &gpuMorpherBackendImpl{
		mu:              &sync.Mutex{},
		renderer:        r,
		kernel:          km,
		pipelineKey:     common.Coalesce(pipelineKey, DefaultPipelineKey),
		computeProvider: bind_group_provider.NewBindGroupProvider(label),
	}
}

func (b *gpuMorpherBackendImpl) Init(base []morph.Vertex, deltas []morph.TargetDelta) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.renderer == nil {
		return ErrNoRenderer
	}
	p, err := b.ensurePipeline()
	if err != nil {
		return err
	}

	var v morph.GPUMorphVertex
	stride := uint64(v.Size())
	n := uint64(len(base))
	sizes := map[int]uint64{
		kernels.BindingBase:   n * stride,
		kernels.BindingDeltas: n * stride * morph.MaxTargetCount,
		kernels.BindingOutput: n * stride,
	}
	if err := b.renderer.InitBindGroup(b.computeProvider, b.pipelineKey, kernels.GroupMorph, nil, sizes); err != nil {
		return fmt.Errorf("morpher: init bind group: %w", err)
	}

	if err := b.renderer.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: b.computeProvider, Binding: kernels.BindingBase, Data: morph.MarshalVertices(base)},
		{Provider: b.computeProvider, Binding: kernels.BindingDeltas, Data: morph.MarshalDeltas(deltas)},
	}); err != nil {
		return fmt.Errorf("morpher: upload mesh: %w", err)
	}

	var params morph.GPUBlendParams
	b.stagingParams = make([]byte, params.Size())
	b.stagingWeights = make([]byte, morph.WeightsSize)
	b.vertexCount = len(base)
	b.workgroups = [3]uint32{p.Shader().Kernel().DispatchSize(len(base)), 1, 1}
	return nil
}

// ensurePipeline registers the blend pipeline with the renderer unless it is already cached.
func (b *gpuMorpherBackendImpl) ensurePipeline() (pipeline.Pipeline, error) {
	if p := b.renderer.Pipeline(b.pipelineKey); p != nil {
		return p, nil
	}

	km := b.kernel
	if km == nil {
		var err error
		if km, err = kernels.ResolveKernelModule(); err != nil {
			return nil, err
		}
	}
	p := pipeline.NewPipeline(b.pipelineKey, pipeline.WithComputeShader(shader.NewShader(b.pipelineKey, km)))
	if err := b.renderer.RegisterPipelines(p); err != nil {
		return nil, err
	}
	return b.renderer.Pipeline(b.pipelineKey), nil
}

func (b *gpuMorpherBackendImpl) PrepareFrame(w morph.WeightVector, attrs morph.Attributes) {
	b.mu.Lock()
	defer b.mu.Unlock()

	params := morph.NewGPUBlendParams(b.vertexCount, w, attrs)
	copy(b.stagingParams, params.Marshal())
	copy(b.stagingWeights, morph.MarshalWeights(w))

	b.stagedWriteData = append(b.stagedWriteData,
		bind_group_provider.BufferWrite{Provider: b.computeProvider, Binding: kernels.BindingParams, Data: b.stagingParams},
		bind_group_provider.BufferWrite{Provider: b.computeProvider, Binding: kernels.BindingWeights, Data: b.stagingWeights},
	)
}

func (b *gpuMorpherBackendImpl) StagedWriteData() []bind_group_provider.BufferWrite {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.stagedWriteData
	b.stagedWriteData = nil
	return w
}

func (b *gpuMorpherBackendImpl) ComputeBindGroupProvider() bind_group_provider.BindGroupProvider {
	return b.computeProvider
}

func (b *gpuMorpherBackendImpl) PipelineKey() string {
	return b.pipelineKey
}

func (b *gpuMorpherBackendImpl) WorkgroupCount() [3]uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.workgroups
}

func (b *gpuMorpherBackendImpl) ReadBack(dst []morph.Vertex) error {
	var v morph.GPUMorphVertex
	data, err := b.renderer.ReadBuffer(b.computeProvider, kernels.BindingOutput, uint64(len(dst)*v.Size()))
	if err != nil {
		return err
	}
	if got := morph.UnmarshalVertices(dst, data); got != len(dst) {
		return fmt.Errorf("%w: read %d of %d vertices", renderer.ErrReadback, got, len(dst))
	}
	return nil
}

func (b *gpuMorpherBackendImpl) Blend(w morph.WeightVector, attrs morph.Attributes, dst []morph.Vertex) error {
	b.PrepareFrame(w, attrs)
	if err := b.renderer.WriteBuffers(b.StagedWriteData()); err != nil {
		return err
	}
	if err := b.renderer.BeginComputeFrame(); err != nil {
		return err
	}
	if err := b.renderer.DispatchCompute(b.pipelineKey, b.computeProvider, b.WorkgroupCount()); err != nil {
		// Submit what was encoded so the frame encoder is not left open.
		_ = b.renderer.EndComputeFrame()
		return err
	}
	if err := b.renderer.EndComputeFrame(); err != nil {
		return err
	}
	return b.ReadBack(dst)
}

func (b *gpuMorpherBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.computeProvider.Release()
	b.stagedWriteData = nil
}

// --- cpuMorpherBackend no-ops ---

func (b *gpuMorpherBackendImpl) Submit(w morph.WeightVector, attrs morph.Attributes, dst []morph.Vertex, wg *sync.WaitGroup) {
}
