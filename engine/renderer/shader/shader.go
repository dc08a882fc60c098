package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-morph/engine/kernels"
)

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for compute pipeline creation.
type shader struct {
	key                        string
	kernel                     *kernels.KernelModule
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader is a compute shader built from a resolved kernel module. It exposes the shader's
// unique key, source, entry point, workgroup size and the bind group layout descriptors the
// renderer needs to create the pipeline and its bind groups.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// Kernel returns the resolved kernel module this shader was built from.
	//
	// Returns:
	//   - *kernels.KernelModule: the kernel module
	Kernel() *kernels.KernelModule

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor for the group, or an empty descriptor if the kernel has none
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all bind group layout descriptors, keyed by group index.
	// They are the CPU-side descriptors the renderer uses to create wgpu.BindGroupLayout objects.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name bound at group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index of a named variable within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable name was found, false otherwise
	BindGroupFromVarName(group int, varName string) (int, bool)

	// EntryPoint returns the compute entry point name.
	//
	// Returns:
	//   - string: the entry point name (e.g. "morph_blend")
	EntryPoint() string

	// WorkgroupSize returns the workgroup size dimensions of the entry point.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor for this shader. The module is always
	// created from the pre-processed WGSL; the kernel's SPIR-V is not uploaded because the
	// wgpu binding passes its byte length where wgpu-native expects a word count.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor holding the WGSL code
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the binding annotations found in the kernel source.
	//
	// Returns:
	//   - []kernels.Annotation: the group annotations of the kernel
	Declarations() []kernels.Annotation
}

var _ Shader = &shader{}

// NewShader creates a compute Shader from a resolved kernel module. Bind group layouts are
// derived from the kernel's reflected bindings rather than parsed from source text.
// It panics if km is nil, since a shader cannot exist without a resolved kernel.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - km: the resolved kernel module
//
// Returns:
//   - Shader: a new Shader instance built from the kernel
func NewShader(key string, km *kernels.KernelModule) Shader {
	if km == nil {
		panic(fmt.Sprintf("shader: %s requires a resolved kernel module", key))
	}
	s := &shader{
		key:    key,
		kernel: km,
		module: &wgpu.ShaderModuleDescriptor{
			Label:          key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: km.Source},
		},
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = bindGroupLayouts(key, km.Bindings)
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.kernel.Source
}

func (s *shader) Kernel() *kernels.KernelModule {
	return s.kernel
}

func (s *shader) EntryPoint() string {
	return s.kernel.EntryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.kernel.Workgroup
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	if s.bindingVarNames[group] == nil {
		return -1, false
	}
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []kernels.Annotation {
	return s.kernel.Declarations
}

// bindGroupLayouts converts reflected kernel bindings into compute-visible bind group layout
// descriptors keyed by group, plus the variable names keyed by group and binding.
func bindGroupLayouts(key string, bindings []kernels.Binding) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	descriptors := make(map[int]wgpu.BindGroupLayoutDescriptor)
	names := make(map[int]map[int]string)

	for _, b := range bindings {
		group := int(b.Group)
		desc, ok := descriptors[group]
		if !ok {
			desc = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s Group %d", key, group)}
			names[group] = make(map[int]string)
		}
		desc.Entries = append(desc.Entries, wgpu.BindGroupLayoutEntry{
			Binding:    b.Binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type:           bufferBindingType(b.Space),
				MinBindingSize: b.Size,
			},
		})
		descriptors[group] = desc
		names[group][int(b.Binding)] = b.Name
	}
	return descriptors, names
}

func bufferBindingType(space kernels.BindingSpace) wgpu.BufferBindingType {
	switch space {
	case kernels.BindingSpaceUniform:
		return wgpu.BufferBindingTypeUniform
	case kernels.BindingSpaceReadStorage:
		return wgpu.BufferBindingTypeReadOnlyStorage
	default:
		return wgpu.BufferBindingTypeStorage
	}
}
