package kernels

import (
	"errors"
	"fmt"
)

var (
	// ErrModuleNotFound is matched by every resolution failure: the kernel resource is missing
	// from its bundle or could not be loaded.
	ErrModuleNotFound = errors.New("kernels: kernel module not found")

	// ErrTargetCountMismatch reports a kernel whose weight array length differs from morph.MaxTargetCount.
	ErrTargetCountMismatch = errors.New("kernels: kernel target count does not match host")

	// ErrMissingEntryPoint reports a kernel without the expected compute entry point.
	ErrMissingEntryPoint = errors.New("kernels: compute entry point not found")

	// ErrMissingBinding reports a kernel that does not declare one of the blend bindings.
	ErrMissingBinding = errors.New("kernels: binding not declared")

	// ErrReservedIdentifier reports a kernel that uses a WGSL reserved word as an identifier.
	// naga's Go front end accepts these but wgpu rejects the module at CreateShaderModule.
	ErrReservedIdentifier = errors.New("kernels: reserved word used as identifier")
)

// ModuleNotFoundError describes a failed kernel resolution. It matches ErrModuleNotFound via errors.Is
// and unwraps to the underlying cause.
type ModuleNotFoundError struct {
	// Bundle names the resource bundle that was searched.
	Bundle string

	// Path is the kernel resource path inside the bundle.
	Path string

	// Err is the underlying cause (fs.ErrNotExist, a pre-processor error, a compile error, ...).
	Err error
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("kernels: kernel module %q not found in bundle %q: %v", e.Path, e.Bundle, e.Err)
}

func (e *ModuleNotFoundError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrModuleNotFound.
func (e *ModuleNotFoundError) Is(target error) bool {
	return target == ErrModuleNotFound
}
