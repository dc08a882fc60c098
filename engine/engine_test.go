package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-morph/engine/config"
	"github.com/Carmen-Shannon/oxy-morph/engine/kernels"
	"github.com/Carmen-Shannon/oxy-morph/engine/model"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/morpher"
	"github.com/Carmen-Shannon/oxy-morph/engine/scene"
)

var quiet = log.New(io.Discard)

func triangle() model.MorphMesh {
	return model.NewMorphMesh(
		model.WithName("tri"),
		model.WithPositions([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
		model.WithTarget("raise", [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}, nil, nil),
	)
}

func newCPUEngine(t *testing.T, options ...EngineBuilderOption) Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Compute.Workers = 2
	e, err := NewEngine(append([]EngineBuilderOption{WithConfig(cfg), WithLogger(quiet)}, options...)...)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func TestNewEngineCPU(t *testing.T) {
	e := newCPUEngine(t)
	assert.Equal(t, morpher.BackendTypeCPU, e.Backend())
	assert.Nil(t, e.Renderer())
	assert.Nil(t, e.Kernel(), "the CPU backend never resolves the kernel")
	assert.NotNil(t, e.Loader())
	assert.NotNil(t, e.Resolver())
}

func TestNewEngineRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Compute.Backend = "tpu"
	_, err := NewEngine(WithConfig(cfg), WithLogger(quiet))
	assert.Error(t, err)
}

func TestGPUEngineFailsWithoutKernel(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	cfg := config.Default()
	cfg.Compute.Backend = config.BackendGPU
	cfg.Kernels.Dir = dir
	_, err := NewEngine(WithConfig(cfg), WithLogger(quiet))
	require.ErrorIs(t, err, kernels.ErrModuleNotFound)

	// the kernel appearing later does not trigger another load
	source, readErr := os.ReadFile(filepath.Join("kernels", "assets", "morph_blend.wgsl"))
	require.NoError(t, readErr)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "morph_blend.wgsl"), source, 0o644))
	_, freshErr := kernels.NewResolver(kernels.WithInstallDir(dir), kernels.WithLogger(quiet)).Resolve()
	require.NoError(t, freshErr)

	_, again := NewEngine(WithConfig(cfg), WithLogger(quiet))
	require.ErrorIs(t, again, kernels.ErrModuleNotFound)
	var first, second *kernels.ModuleNotFoundError
	require.True(t, errors.As(err, &first))
	require.True(t, errors.As(again, &second))
	assert.Same(t, first, second)
}

func TestEnginesShareResolver(t *testing.T) {
	a := newCPUEngine(t)
	b := newCPUEngine(t)
	assert.Same(t, a.Resolver(), b.Resolver())
	assert.Same(t, kernels.SharedResolver(kernels.WithConfig(config.Default().Kernels)), a.Resolver())

	kmA, err := a.Resolver().Resolve()
	require.NoError(t, err)
	kmB, err := b.Resolver().Resolve()
	require.NoError(t, err)
	assert.Same(t, kmA, kmB)

	if os.Getenv(config.EnvKernelsDir) == "" {
		km, err := kernels.ResolveKernelModule()
		require.NoError(t, err)
		assert.Same(t, kmA, km)
	}
}

func TestStepUpdatesActiveScenesInOrder(t *testing.T) {
	e := newCPUEngine(t)
	first := e.NewScene(0, "first")
	_, m, err := first.NewMorpher(e.Backend(), triangle())
	require.NoError(t, err)

	idle := e.NewScene(1, "idle")
	_, other, err := idle.NewMorpher(e.Backend(), triangle())
	require.NoError(t, err)
	idle.SetActive(false)

	var calls int
	e.SetTickCallback(func(dt float32) {
		calls++
		m.SetTargetWeights(morph.NewWeightVector(dt), morph.Immediate)
	})

	stats, err := e.Step(0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, stats.Blended)
	assert.Equal(t, 3, stats.Vertices)
	assert.Equal(t, [3]float32{1, 0, 0.5}, m.Output()[1].Position)
	assert.True(t, other.Dirty(), "inactive scenes are skipped")

	assert.Len(t, e.Scenes(), 2)
	e.RemoveScene(1)
	assert.Nil(t, e.Scene(1))
	idle.Release()
}

func TestRunStopsOnContext(t *testing.T) {
	e := newCPUEngine(t, WithTickRate(200))
	var ticks atomic.Int32
	e.SetTickCallback(func(float32) { ticks.Add(1) })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Positive(t, ticks.Load())
}

func TestQuitStopsRun(t *testing.T) {
	e := newCPUEngine(t)
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	e.SetTickRate(120)
	e.Quit()
	e.Quit()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
}

func TestWithScene(t *testing.T) {
	s := scene.NewScene("pre", scene.WithLogger(quiet), scene.WithActive(true))
	e := newCPUEngine(t, WithScene(3, s))
	assert.Same(t, s, e.Scene(3))
}
