package kernels

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/spirv"

	"github.com/Carmen-Shannon/oxy-morph/engine/logger"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
)

// resolver is the implementation of the Resolver interface.
type resolver struct {
	bundle     fs.FS
	bundleName string
	name       string
	version    spirv.Version
	debug      bool
	log        *log.Logger

	once   sync.Once
	module atomic.Pointer[KernelModule]
	err    error
}

// Resolver locates, pre-processes, validates and compiles a kernel module exactly once.
type Resolver interface {
	// Resolve returns the kernel module, loading it on the first call. The load runs at most
	// once: concurrent callers block until it finishes and all observe the same *KernelModule.
	// A failed load is remembered and returned to every later caller without retrying.
	//
	// Returns:
	//   - *KernelModule: the resolved module, nil on failure
	//   - error: a *ModuleNotFoundError matching ErrModuleNotFound if the kernel is missing or unloadable
	Resolve() (*KernelModule, error)

	// Module returns the resolved module without triggering a load.
	//
	// Returns:
	//   - *KernelModule: the resolved module, or nil if Resolve has not succeeded
	Module() *KernelModule

	// Bundle names the resource bundle this resolver reads from.
	//
	// Returns:
	//   - string: the bundle name
	Bundle() string

	// Path returns the kernel resource path inside the bundle.
	//
	// Returns:
	//   - string: the resource path, e.g. "morph_blend.wgsl"
	Path() string
}

var _ Resolver = &resolver{}

// NewResolver creates a Resolver. Without options it reads DefaultKernelName from this
// package's embedded bundle and targets SPIR-V 1.3. Nothing is loaded until Resolve.
//
// Parameters:
//   - options: variadic list of ResolverBuilderOption functions to configure the resolver
//
// Returns:
//   - Resolver: the configured resolver
func NewResolver(options ...ResolverBuilderOption) Resolver {
	r := &resolver{
		bundle:     embeddedBundle(),
		bundleName: embeddedBundleName,
		name:       DefaultKernelName,
		version:    spirv.Version1_3,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Component("kernels")
	}
	return r
}

func (r *resolver) Resolve() (*KernelModule, error) {
	r.once.Do(func() {
		start := time.Now()
		m, err := r.load()
		if err != nil {
			r.err = err
			r.log.Error("kernel resolution failed", "bundle", r.bundleName, "path", r.Path(), "err", err)
			return
		}
		r.module.Store(m)
		r.log.Info("kernel resolved",
			"bundle", r.bundleName,
			"entry", m.EntryPoint,
			"workgroup", m.Workgroup[0],
			"spirv_bytes", len(m.SPIRV),
			"took", time.Since(start))
	})
	if r.err != nil {
		return nil, r.err
	}
	return r.module.Load(), nil
}

func (r *resolver) Module() *KernelModule {
	return r.module.Load()
}

func (r *resolver) Bundle() string {
	return r.bundleName
}

func (r *resolver) Path() string {
	return path.Clean(r.name + kernelExt)
}

// load performs one full resolution. Every failure is wrapped in a *ModuleNotFoundError.
func (r *resolver) load() (*KernelModule, error) {
	notFound := func(err error) error {
		return &ModuleNotFoundError{Bundle: r.bundleName, Path: r.Path(), Err: err}
	}
	if r.bundle == nil {
		return nil, notFound(fs.ErrNotExist)
	}

	raw, err := fs.ReadFile(r.bundle, r.Path())
	if err != nil {
		return nil, notFound(err)
	}

	pp := NewPreProcessor()
	source, err := pp.Process(string(raw))
	if err != nil {
		return nil, notFound(fmt.Errorf("pre-process: %w", err))
	}
	if err := checkReservedWords(source); err != nil {
		return nil, notFound(err)
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, notFound(err)
	}
	irModule, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, notFound(fmt.Errorf("lower: %w", err))
	}
	validationErrors, err := naga.Validate(irModule)
	if err != nil {
		return nil, notFound(fmt.Errorf("validate: %w", err))
	}
	if len(validationErrors) > 0 {
		return nil, notFound(fmt.Errorf("validate: %w", validationErrors[0]))
	}

	refl, err := reflectModule(irModule, r.name)
	if err != nil {
		return nil, notFound(err)
	}
	km := &KernelModule{
		Name:         r.name,
		Bundle:       r.bundleName,
		EntryPoint:   refl.entryPoint,
		Source:       source,
		Workgroup:    refl.workgroup,
		Bindings:     refl.bindings,
		Declarations: slices.Clone(pp.Declarations()),
	}
	if err := checkBlendLayout(km); err != nil {
		return nil, notFound(err)
	}

	km.SPIRV, err = naga.GenerateSPIRV(irModule, spirv.Options{Version: r.version, Debug: r.debug})
	if err != nil {
		return nil, notFound(err)
	}
	return km, nil
}

// blendLayout is the binding layout the host allocates buffers for.
var blendLayout = []struct {
	binding uint32
	space   BindingSpace
}{
	{BindingParams, BindingSpaceUniform},
	{BindingWeights, BindingSpaceReadStorage},
	{BindingBase, BindingSpaceReadStorage},
	{BindingDeltas, BindingSpaceReadStorage},
	{BindingOutput, BindingSpaceReadWriteStorage},
}

// checkBlendLayout verifies that km exposes the host's blend bindings and that its weight
// array holds exactly morph.MaxTargetCount slots. It sets km.MaxTargetCount.
func checkBlendLayout(km *KernelModule) error {
	for _, want := range blendLayout {
		b, ok := km.Binding(GroupMorph, want.binding)
		if !ok {
			return fmt.Errorf("%w: @group(%d) @binding(%d)", ErrMissingBinding, GroupMorph, want.binding)
		}
		if b.Space != want.space {
			return fmt.Errorf("%w: @group(%d) @binding(%d) is %s, want %s", ErrMissingBinding, GroupMorph, want.binding, b.Space, want.space)
		}
	}

	weights, _ := km.Binding(GroupMorph, BindingWeights)
	km.MaxTargetCount = int(weights.ArrayLength)
	if weights.RuntimeSized || km.MaxTargetCount != morph.MaxTargetCount {
		return fmt.Errorf("%w: kernel has %d weight slots, host has %d", ErrTargetCountMismatch, km.MaxTargetCount, morph.MaxTargetCount)
	}
	return nil
}
