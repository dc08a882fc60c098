package kernels

import (
	"fmt"
	"slices"

	"github.com/gogpu/naga/ir"
)

// BindingSpace is the address space of a kernel binding as seen by the host.
type BindingSpace int

const (
	// BindingSpaceUniform is a var<uniform> binding.
	BindingSpaceUniform BindingSpace = iota

	// BindingSpaceReadStorage is a var<storage, read> binding.
	BindingSpaceReadStorage

	// BindingSpaceReadWriteStorage is a var<storage, read_write> binding.
	BindingSpaceReadWriteStorage
)

func (s BindingSpace) String() string {
	switch s {
	case BindingSpaceUniform:
		return "uniform"
	case BindingSpaceReadStorage:
		return "storage, read"
	case BindingSpaceReadWriteStorage:
		return "storage, read_write"
	default:
		return fmt.Sprintf("BindingSpace(%d)", int(s))
	}
}

// Binding describes one resource binding reflected from a compiled kernel.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	Space   BindingSpace

	// TypeName is the WGSL name of the bound type, or of the array element for arrays.
	TypeName string

	// Size is the minimum binding size in bytes. For runtime-sized arrays it is the element stride.
	Size uint64

	// RuntimeSized reports a runtime-sized array binding whose length is set by the host.
	RuntimeSized bool

	// ArrayLength is the element count of a fixed-size array binding, zero otherwise.
	ArrayLength uint32
}

// reflection is the host-facing summary of a lowered kernel module.
type reflection struct {
	entryPoint string
	workgroup  [3]uint32
	bindings   []Binding
}

// reflectModule extracts the named compute entry point and every bound global from m.
//
// Parameters:
//   - m: the lowered and validated module
//   - entryPoint: the compute entry point to find
//
// Returns:
//   - reflection: the entry point, workgroup size and bindings sorted by group then binding
//   - error: ErrMissingEntryPoint if no compute entry point has that name
func reflectModule(m *ir.Module, entryPoint string) (reflection, error) {
	var r reflection
	for _, ep := range m.EntryPoints {
		if ep.Stage == ir.StageCompute && ep.Name == entryPoint {
			r.entryPoint = ep.Name
			r.workgroup = ep.Workgroup
			break
		}
	}
	if r.entryPoint == "" {
		return r, fmt.Errorf("%w: %q", ErrMissingEntryPoint, entryPoint)
	}
	for i := range r.workgroup {
		r.workgroup[i] = max(r.workgroup[i], 1)
	}

	for _, gv := range m.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		b := Binding{
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Name:    gv.Name,
		}
		switch gv.Space {
		case ir.SpaceUniform:
			b.Space = BindingSpaceUniform
		case ir.SpaceStorage:
			b.Space = BindingSpaceReadWriteStorage
			if gv.Access == ir.StorageRead {
				b.Space = BindingSpaceReadStorage
			}
		default:
			continue
		}

		ty := typeAt(m, gv.Type)
		b.TypeName = ty.Name
		b.Size = typeSize(m, gv.Type)
		if arr, ok := ty.Inner.(ir.ArrayType); ok {
			b.TypeName = typeName(m, arr.Base)
			if arr.Size.Constant == nil {
				b.RuntimeSized = true
				b.Size = uint64(arr.Stride)
			} else {
				b.ArrayLength = *arr.Size.Constant
			}
		}
		r.bindings = append(r.bindings, b)
	}

	slices.SortFunc(r.bindings, func(a, b Binding) int {
		if a.Group != b.Group {
			return int(a.Group) - int(b.Group)
		}
		return int(a.Binding) - int(b.Binding)
	})
	return r, nil
}

func typeAt(m *ir.Module, h ir.TypeHandle) ir.Type {
	if int(h) >= len(m.Types) {
		return ir.Type{}
	}
	return m.Types[h]
}

// typeName returns the declared name of h, or a WGSL spelling for unnamed scalars and vectors.
func typeName(m *ir.Module, h ir.TypeHandle) string {
	ty := typeAt(m, h)
	if ty.Name != "" {
		return ty.Name
	}
	switch inner := ty.Inner.(type) {
	case ir.ScalarType:
		return scalarName(inner)
	case ir.VectorType:
		return fmt.Sprintf("vec%d<%s>", inner.Size, scalarName(inner.Scalar))
	default:
		return ""
	}
}

func scalarName(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarFloat:
		return fmt.Sprintf("f%d", int(s.Width)*8)
	case ir.ScalarSint:
		return fmt.Sprintf("i%d", int(s.Width)*8)
	case ir.ScalarUint:
		return fmt.Sprintf("u%d", int(s.Width)*8)
	case ir.ScalarBool:
		return "bool"
	default:
		return ""
	}
}

// typeSize returns the byte size of h. Runtime-sized arrays count as a single element.
func typeSize(m *ir.Module, h ir.TypeHandle) uint64 {
	switch inner := typeAt(m, h).Inner.(type) {
	case ir.ScalarType:
		return uint64(inner.Width)
	case ir.VectorType:
		return uint64(inner.Size) * uint64(inner.Scalar.Width)
	case ir.StructType:
		return uint64(inner.Span)
	case ir.ArrayType:
		if inner.Size.Constant == nil {
			return uint64(inner.Stride)
		}
		return uint64(inner.Stride) * uint64(*inner.Size.Constant)
	default:
		return 0
	}
}
