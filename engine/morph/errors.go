package morph

import "errors"

// Validation errors returned while preparing morph target data on the host.
// The blend kernel itself never returns errors; these are raised once, when a mesh and
// its targets are packed for blending.
var (
	ErrMissingBaseMesh                  = errors.New("morph: missing base mesh")
	ErrInvalidNumberOfTargets           = errors.New("morph: invalid number of targets")
	ErrTargetsNotTopologicallyIdentical = errors.New("morph: targets are not topologically identical to the base mesh")
	ErrTooMuchGeometry                  = errors.New("morph: too much geometry")
	ErrAttributeCountMismatch           = errors.New("morph: position count not equal to normal count")
)
