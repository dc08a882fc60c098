package kernels

import (
	"embed"
	"io/fs"
	"os"
	"sync"

	"github.com/gogpu/naga/spirv"

	"github.com/Carmen-Shannon/oxy-morph/engine/config"
)

// Default kernel identity.
const (
	// DefaultKernelName is the resource name of the morph blend kernel, without extension.
	DefaultKernelName = "morph_blend"

	// kernelExt is appended to a kernel name to form its resource path.
	kernelExt = ".wgsl"

	// embeddedBundleName identifies the kernels compiled into this package.
	embeddedBundleName = "embedded:oxy-morph/kernels"
)

// Binding indices of the morph blend kernel, all in GroupMorph.
const (
	GroupMorph     = 0
	BindingParams  = 0
	BindingWeights = 1
	BindingBase    = 2
	BindingDeltas  = 3
	BindingOutput  = 4
)

//go:embed assets/*.wgsl
var embedded embed.FS

// embeddedBundle returns the package's own kernel bundle rooted at assets/.
func embeddedBundle() fs.FS {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		panic("kernels: embedded bundle is malformed: " + err.Error())
	}
	return sub
}

// KernelModule is the resolved, validated and compiled morph blend kernel.
// It is immutable once published by a Resolver.
type KernelModule struct {
	// Name is the kernel resource name.
	Name string

	// Bundle names the resource bundle the kernel was loaded from.
	Bundle string

	// EntryPoint is the compute entry point.
	EntryPoint string

	// Source is the pre-processed WGSL source.
	Source string

	// SPIRV is the compiled SPIR-V binary.
	SPIRV []byte

	// Workgroup is the @workgroup_size of the entry point. Unset dimensions are 1.
	Workgroup [3]uint32

	// Bindings are the reflected resource bindings sorted by group then binding.
	Bindings []Binding

	// MaxTargetCount is the weight array length the kernel was compiled with.
	MaxTargetCount int

	// Declarations are the binding annotations found in the raw kernel source.
	Declarations []Annotation
}

// Binding returns the reflected binding at group and binding.
//
// Parameters:
//   - group: the @group index
//   - binding: the @binding index
//
// Returns:
//   - Binding: the binding, or the zero Binding
//   - bool: true if the kernel declares it
func (k *KernelModule) Binding(group, binding uint32) (Binding, bool) {
	for _, b := range k.Bindings {
		if b.Group == group && b.Binding == binding {
			return b, true
		}
	}
	return Binding{}, false
}

// DispatchSize returns the number of workgroups along X that cover vertexCount invocations.
//
// Parameters:
//   - vertexCount: the number of vertices to blend
//
// Returns:
//   - uint32: ceil(vertexCount / Workgroup[0])
func (k *KernelModule) DispatchSize(vertexCount int) uint32 {
	if vertexCount <= 0 {
		return 0
	}
	wx := max(k.Workgroup[0], 1)
	return (uint32(vertexCount) + wx - 1) / wx
}

// resolverKey identifies a shared resolver by the bundle it reads and what it compiles.
type resolverKey struct {
	bundle  string
	name    string
	version spirv.Version
	debug   bool
}

var (
	sharedMu  sync.Mutex
	resolvers = make(map[resolverKey]Resolver)

	defaultOnce     sync.Once
	defaultResolver Resolver
)

// SharedResolver returns the process-wide Resolver for the bundle, kernel name and SPIR-V
// options selected by options. The first call for a combination creates the resolver; every
// later call with the same combination returns it, so the kernel is loaded at most once per
// process and a failure is never retried. Other options (the logger) only apply to the call
// that creates the resolver. Bundles are told apart by name.
//
// Parameters:
//   - options: variadic list of ResolverBuilderOption functions selecting the kernel
//
// Returns:
//   - Resolver: the shared resolver
func SharedResolver(options ...ResolverBuilderOption) Resolver {
	r := NewResolver(options...).(*resolver)
	key := resolverKey{bundle: r.bundleName, name: r.name, version: r.version, debug: r.debug}

	sharedMu.Lock()
	defer sharedMu.Unlock()
	if cached, ok := resolvers[key]; ok {
		return cached
	}
	resolvers[key] = r
	return r
}

// DefaultResolver returns the shared Resolver over this package's embedded kernels.
// When OXY_MORPH_KERNELS_DIR is set at first use, kernels are read from that directory instead.
// It is the same resolver SharedResolver returns for a default config.KernelsConfig.
//
// Returns:
//   - Resolver: the shared resolver
func DefaultResolver() Resolver {
	defaultOnce.Do(func() {
		var opts []ResolverBuilderOption
		if dir := os.Getenv(config.EnvKernelsDir); dir != "" {
			opts = append(opts, WithInstallDir(dir))
		}
		defaultResolver = SharedResolver(opts...)
	})
	return defaultResolver
}

// ResolveKernelModule resolves the morph blend kernel through DefaultResolver.
// The first call loads and compiles the kernel. Later and concurrent calls return the same
// *KernelModule, or the same error if the first resolution failed.
//
// Returns:
//   - *KernelModule: the process-wide kernel module
//   - error: a *ModuleNotFoundError matching ErrModuleNotFound if resolution failed
func ResolveKernelModule() (*KernelModule, error) {
	return DefaultResolver().Resolve()
}
