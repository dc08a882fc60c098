package kernels

import (
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gogpu/naga/spirv"

	"github.com/Carmen-Shannon/oxy-morph/common"
	"github.com/Carmen-Shannon/oxy-morph/engine/config"
)

// ResolverBuilderOption is a functional option applied to a resolver during construction via NewResolver.
type ResolverBuilderOption func(*resolver)

// WithBundle reads kernels from an arbitrary resource bundle instead of the embedded one.
//
// Parameters:
//   - name: a human readable bundle name used in errors and logs
//   - bundle: the file system holding <kernel>.wgsl at its root
//
// Returns:
//   - ResolverBuilderOption: a function that applies the bundle option to a resolver
func WithBundle(name string, bundle fs.FS) ResolverBuilderOption {
	return func(r *resolver) {
		r.bundleName = name
		r.bundle = bundle
	}
}

// WithInstallDir reads kernels from an installed kernel directory.
//
// Parameters:
//   - dir: the directory holding <kernel>.wgsl
//
// Returns:
//   - ResolverBuilderOption: a function that applies the install directory option to a resolver
func WithInstallDir(dir string) ResolverBuilderOption {
	return WithBundle(dir, os.DirFS(dir))
}

// WithKernelName selects the kernel resource. The compute entry point must carry the same name.
//
// Parameters:
//   - name: the kernel name without the .wgsl extension
//
// Returns:
//   - ResolverBuilderOption: a function that applies the kernel name option to a resolver
func WithKernelName(name string) ResolverBuilderOption {
	return func(r *resolver) {
		r.name = name
	}
}

// WithSPIRVVersion sets the SPIR-V version the kernel is compiled to.
//
// Parameters:
//   - version: the target SPIR-V version
//
// Returns:
//   - ResolverBuilderOption: a function that applies the SPIR-V version option to a resolver
func WithSPIRVVersion(version spirv.Version) ResolverBuilderOption {
	return func(r *resolver) {
		r.version = version
	}
}

// WithSPIRVDebug emits debug names and line info into the compiled SPIR-V.
func WithSPIRVDebug(debug bool) ResolverBuilderOption {
	return func(r *resolver) {
		r.debug = debug
	}
}

// WithLogger replaces the resolver's logger.
func WithLogger(l *log.Logger) ResolverBuilderOption {
	return func(r *resolver) {
		r.log = l
	}
}

// WithConfig applies a kernels config section. Empty fields keep their defaults.
// The SPIR-V version is expected to have passed config.Validate.
//
// Parameters:
//   - cfg: the kernels configuration
//
// Returns:
//   - ResolverBuilderOption: a function that applies the configuration to a resolver
func WithConfig(cfg config.KernelsConfig) ResolverBuilderOption {
	return func(r *resolver) {
		if cfg.Dir != "" {
			WithInstallDir(cfg.Dir)(r)
		}
		r.name = common.Coalesce(cfg.Name, r.name)
		if major, minor, err := config.ParseVersion(cfg.SPIRVVersion); err == nil {
			r.version = spirv.Version{Major: major, Minor: minor}
		}
	}
}
