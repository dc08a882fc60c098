package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	src := `
[compute]
backend = "gpu"
workers = 4

[engine]
tick_rate = 30
`
	cfg, err := Decode(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, BackendGPU, cfg.Compute.Backend)
	assert.Equal(t, 4, cfg.Compute.Workers)
	assert.Equal(t, 30, cfg.Engine.TickRate)
	assert.Equal(t, Default().Compute.ChunkSize, cfg.Compute.ChunkSize)
	assert.Equal(t, "morph_blend", cfg.Kernels.Name)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("[compute]\nbackend = \"cpu\"\nthreads = 8\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threads")
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Kernels.Dir = "/opt/oxy/kernels"
	cfg.Engine.Profiling = true

	var buf bytes.Buffer
	require.NoError(t, cfg.Save(&buf))

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)
}

func TestLoadAppliesEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy-morph.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0o644))

	t.Setenv(EnvBackend, " GPU ")
	t.Setenv(EnvKernelsDir, "/srv/kernels")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, BackendGPU, cfg.Compute.Backend)
	assert.Equal(t, "/srv/kernels", cfg.Kernels.Dir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown backend", mutate: func(c *Config) { c.Compute.Backend = "tpu" }},
		{name: "negative workers", mutate: func(c *Config) { c.Compute.Workers = -1 }},
		{name: "zero chunk size", mutate: func(c *Config) { c.Compute.ChunkSize = 0 }},
		{name: "empty kernel name", mutate: func(c *Config) { c.Kernels.Name = "" }},
		{name: "bad spirv version", mutate: func(c *Config) { c.Kernels.SPIRVVersion = "2.0" }},
		{name: "zero tick rate", mutate: func(c *Config) { c.Engine.TickRate = 0 }},
		{name: "profiling without interval", mutate: func(c *Config) {
			c.Engine.Profiling = true
			c.Engine.ProfileInterval = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestParseVersion(t *testing.T) {
	major, minor, err := ParseVersion("1.5")
	require.NoError(t, err)
	assert.Equal(t, uint8(1), major)
	assert.Equal(t, uint8(5), minor)

	for _, bad := range []string{"", "1", "1.7", "01.3", "1.3.0", "v1.3"} {
		_, _, err := ParseVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestWorkerCount(t *testing.T) {
	assert.Equal(t, 3, ComputeConfig{Workers: 3}.WorkerCount())
	assert.GreaterOrEqual(t, ComputeConfig{}.WorkerCount(), 1)
}
