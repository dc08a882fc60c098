package morpher

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/bind_group_provider"
)

// DefaultChunkSize is the number of vertices blended by one CPU task when no chunk size is configured.
const DefaultChunkSize = 1024

// cpuMorpherBackendImpl blends on the host over a worker pool.
type cpuMorpherBackendImpl struct {
	mu *sync.Mutex

	// pool runs the chunk tasks. It is owned, and stopped on Release, only when the backend created it.
	pool     worker.DynamicWorkerPool
	ownsPool bool
	workers  int

	chunkSize int
	taskID    int

	base   []morph.Vertex
	deltas []morph.TargetDelta
}

var _ MorpherBackend = &cpuMorpherBackendImpl{}

// newCPUMorpherBackend creates a host blend backend.
//
// Parameters:
//   - pool: a shared worker pool, or nil to start a private pool of workers goroutines
//   - workers: the size of the private pool
//   - chunkSize: vertices per task, DefaultChunkSize when not positive
//
// Returns:
//   - *cpuMorpherBackendImpl: the backend
func newCPUMorpherBackend(pool worker.DynamicWorkerPool, workers, chunkSize int) *cpuMorpherBackendImpl {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &cpuMorpherBackendImpl{
		mu:        &sync.Mutex{},
		pool:      pool,
		workers:   max(workers, 1),
		chunkSize: chunkSize,
	}
}

func (b *cpuMorpherBackendImpl) Init(base []morph.Vertex, deltas []morph.TargetDelta) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.base, b.deltas = base, deltas
	if b.pool == nil && len(base) > b.chunkSize {
		b.pool = worker.NewDynamicWorkerPool(b.workers, 256, time.Second)
		b.ownsPool = true
	}
	return nil
}

func (b *cpuMorpherBackendImpl) Blend(w morph.WeightVector, attrs morph.Attributes, dst []morph.Vertex) error {
	var wg sync.WaitGroup
	b.Submit(w, attrs, dst, &wg)
	wg.Wait()
	return nil
}

func (b *cpuMorpherBackendImpl) Submit(w morph.WeightVector, attrs morph.Attributes, dst []morph.Vertex, wg *sync.WaitGroup) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.base)
	if b.pool == nil || n <= b.chunkSize {
		morph.BlendRange(dst, b.base, b.deltas, w, attrs, 0, n)
		return
	}

	for start := 0; start < n; start += b.chunkSize {
		end := min(start+b.chunkSize, n)
		wg.Add(1)
		id := b.taskID
		b.taskID++
		b.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				morph.BlendRange(dst, b.base, b.deltas, w, attrs, start, end)
				return nil, nil
			},
		})
	}
}

func (b *cpuMorpherBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ownsPool {
		b.pool.Stop()
		b.pool = nil
		b.ownsPool = false
	}
}

// --- gpuMorpherBackend no-ops ---

func (b *cpuMorpherBackendImpl) PrepareFrame(w morph.WeightVector, attrs morph.Attributes) {}

func (b *cpuMorpherBackendImpl) StagedWriteData() []bind_group_provider.BufferWrite {
	return nil
}

func (b *cpuMorpherBackendImpl) ComputeBindGroupProvider() bind_group_provider.BindGroupProvider {
	return nil
}

func (b *cpuMorpherBackendImpl) PipelineKey() string {
	return ""
}

func (b *cpuMorpherBackendImpl) WorkgroupCount() [3]uint32 {
	return [3]uint32{}
}

func (b *cpuMorpherBackendImpl) ReadBack(dst []morph.Vertex) error {
	return nil
}
