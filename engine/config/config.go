package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override values read from a config file.
const (
	EnvKernelsDir = "OXY_MORPH_KERNELS_DIR"
	EnvBackend    = "OXY_MORPH_BACKEND"
	EnvLogLevel   = "OXY_MORPH_LOG_LEVEL"
)

// Compute backend names accepted by ComputeConfig.Backend.
const (
	BackendCPU = "cpu"
	BackendGPU = "gpu"
)

// ErrInvalidConfig is wrapped by every error returned from Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the full runtime configuration of oxy-morph.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Kernels KernelsConfig `toml:"kernels"`
	Compute ComputeConfig `toml:"compute"`
	Engine  EngineConfig  `toml:"engine"`
}

// LogConfig configures the shared logger.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json, logfmt
}

// KernelsConfig configures kernel module resolution.
type KernelsConfig struct {
	// Dir is an installed kernel directory. Empty uses the kernels embedded in the binary.
	Dir string `toml:"dir"`

	// Name is the kernel file name without the .wgsl extension.
	Name string `toml:"name"`

	// SPIRVVersion is the SPIR-V target, written as "major.minor".
	SPIRVVersion string `toml:"spirv_version"`
}

// ComputeConfig configures where blends run.
type ComputeConfig struct {
	Backend              string `toml:"backend"`
	Workers              int    `toml:"workers"`    // 0 picks NumCPU-1
	ChunkSize            int    `toml:"chunk_size"` // vertices per CPU task
	ForceFallbackAdapter bool   `toml:"force_fallback_adapter"`
}

// EngineConfig configures the engine tick loop.
type EngineConfig struct {
	TickRate        int     `toml:"tick_rate"` // ticks per second
	Profiling       bool    `toml:"profiling"`
	ProfileInterval float64 `toml:"profile_interval"` // seconds between profiler reports
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Kernels: KernelsConfig{
			Name:         "morph_blend",
			SPIRVVersion: "1.3",
		},
		Compute: ComputeConfig{
			Backend:   BackendCPU,
			ChunkSize: 1024,
		},
		Engine: EngineConfig{
			TickRate:        60,
			ProfileInterval: 1,
		},
	}
}

// Load reads a TOML config file on top of Default, then applies environment overrides.
// An empty path skips the file.
//
// Parameters:
//   - path: the config file path, or ""
//
// Returns:
//   - Config: the loaded configuration
//   - error: an error if the file cannot be read or decoded, or the result is invalid
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		defer f.Close()

		cfg, err = Decode(f)
		if err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode reads TOML from r on top of Default. Unknown keys are rejected.
//
// Parameters:
//   - r: the TOML source
//
// Returns:
//   - Config: the decoded configuration
//   - error: an error if the TOML is malformed or names unknown keys
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration as TOML.
//
// Parameters:
//   - w: the destination writer
//
// Returns:
//   - error: an error if encoding or writing fails
func (c Config) Save(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// ApplyEnv overrides fields from the OXY_MORPH_* environment variables that are set.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvKernelsDir); ok {
		c.Kernels.Dir = v
	}
	if v, ok := os.LookupEnv(EnvBackend); ok {
		c.Compute.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = v
	}
}

// Validate checks value ranges and enumerations.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig naming the first bad field, or nil
func (c Config) Validate() error {
	switch c.Compute.Backend {
	case BackendCPU, BackendGPU:
	default:
		return fmt.Errorf("%w: compute.backend %q must be %q or %q", ErrInvalidConfig, c.Compute.Backend, BackendCPU, BackendGPU)
	}
	if c.Compute.Workers < 0 {
		return fmt.Errorf("%w: compute.workers must not be negative", ErrInvalidConfig)
	}
	if c.Compute.ChunkSize <= 0 {
		return fmt.Errorf("%w: compute.chunk_size must be positive", ErrInvalidConfig)
	}
	if c.Kernels.Name == "" {
		return fmt.Errorf("%w: kernels.name is empty", ErrInvalidConfig)
	}
	if _, _, err := ParseVersion(c.Kernels.SPIRVVersion); err != nil {
		return fmt.Errorf("%w: kernels.spirv_version: %v", ErrInvalidConfig, err)
	}
	if c.Engine.TickRate <= 0 {
		return fmt.Errorf("%w: engine.tick_rate must be positive", ErrInvalidConfig)
	}
	if c.Engine.Profiling && c.Engine.ProfileInterval <= 0 {
		return fmt.Errorf("%w: engine.profile_interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// ParseVersion splits a "major.minor" SPIR-V version. Supported versions are 1.0 through 1.6.
//
// Parameters:
//   - s: the version string
//
// Returns:
//   - uint8: the major version
//   - uint8: the minor version
//   - error: an error if s is malformed or unsupported
func ParseVersion(s string) (uint8, uint8, error) {
	var major, minor uint8
	if _, err := fmt.Sscanf(s, "%d.%d", &major, &minor); err != nil {
		return 0, 0, fmt.Errorf("malformed version %q", s)
	}
	if fmt.Sprintf("%d.%d", major, minor) != s || major != 1 || minor > 6 {
		return 0, 0, fmt.Errorf("unsupported version %q", s)
	}
	return major, minor, nil
}

// WorkerCount resolves the configured worker count. Zero picks one less than the number of
// CPUs, never fewer than one.
//
// Returns:
//   - int: the number of compute workers to start
func (c ComputeConfig) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return max(runtime.NumCPU()-1, 1)
}
