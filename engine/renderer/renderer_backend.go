package renderer

import "errors"

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based compute backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PowerPreference hints which adapter the backend should request when several are available.
type PowerPreference int

const (
	// PowerPreferenceDefault lets the driver pick an adapter.
	PowerPreferenceDefault PowerPreference = iota

	// PowerPreferenceLowPower prefers an integrated or otherwise power efficient adapter.
	PowerPreferenceLowPower

	// PowerPreferenceHighPerformance prefers a discrete adapter.
	PowerPreferenceHighPerformance
)

// Errors returned by the Renderer.
var (
	ErrNoAdapter         = errors.New("renderer: no compatible GPU adapter")
	ErrPipelineNotFound  = errors.New("renderer: pipeline not found")
	ErrNoComputeFrame    = errors.New("renderer: no compute frame in progress")
	ErrBufferNotFound    = errors.New("renderer: buffer not found")
	ErrBufferOutOfBounds = errors.New("renderer: buffer write out of bounds")
	ErrBufferTooLarge    = errors.New("renderer: buffer exceeds device limits")
	ErrReadback          = errors.New("renderer: buffer readback failed")
)

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
