// annotations.go defines the annotation types, argument constants, and parser for the
// kernel pre-processor. Annotations are single-line WGSL comments prefixed with @oxy:
// that inject the host's shared struct definitions and constants into a kernel and
// declare its bindings, so the host and the kernel are built from one definition of
// every shared layout and limit.
package kernels

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// at the annotation site. It produces no declaration.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include morph_vertex
	annotationTypeInclude AnnotationType = "include"

	// annotationTypeConst emits a WGSL const declaration whose value comes from the host.
	// It produces no declaration.
	//
	// Syntax: //@oxy:const <constant>
	//
	// Example: //@oxy:const max_target_count
	annotationTypeConst AnnotationType = "const"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration and
	// records an Annotation in the pre-processor's declarations list.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 2 storage_read base_vertices array<morph_vertex>
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL kernel source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include: [0] = struct type key
	//   - const:   [0] = constant key
	//   - group:   [0] = address space, [1] = var name, [2] = type key
	Args []AnnotationArg

	// Line is the 1-based source line of the annotation.
	Line int

	// Group is the @group index for group annotations. Nil otherwise.
	Group *int

	// Binding is the @binding index for group annotations. Nil otherwise.
	Binding *int
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// ── Type arguments ─────────────────────────────────────────────────────────────
// Struct types can be included and bound. Plain types can only be bound.

const (
	// AnnotationArgMorphVertex identifies the MorphVertex struct shared by base, delta and output buffers.
	// Source: engine/morph/assets/morph_vertex.wgsl
	AnnotationArgMorphVertex AnnotationArg = "morph_vertex"

	// AnnotationArgBlendParams identifies the BlendParams uniform struct.
	// Source: engine/morph/assets/blend_params.wgsl
	AnnotationArgBlendParams AnnotationArg = "blend_params"

	// AnnotationArgWeights identifies the fixed-size weight array, array<f32, MAX_TARGET_COUNT>.
	AnnotationArgWeights AnnotationArg = "weights"
)

// ── Constant arguments ─────────────────────────────────────────────────────────

const (
	// AnnotationArgMaxTargetCount emits MAX_TARGET_COUNT from morph.MaxTargetCount.
	AnnotationArgMaxTargetCount AnnotationArg = "max_target_count"
)

// ── Address space arguments ────────────────────────────────────────────────────

const (
	// annotationArgStorageTypeUniform maps to var<uniform> in WGSL.
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"

	// annotationArgStorageTypeRead maps to var<storage, read> in WGSL.
	annotationArgStorageTypeRead AnnotationArg = "storage_read"

	// annotationArgStorageTypeReadWrite maps to var<storage, read_write> in WGSL.
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// validStructTypes lists the type keys accepted by @oxy:include.
var validStructTypes = []AnnotationArg{
	AnnotationArgMorphVertex,
	AnnotationArgBlendParams,
}

// validBindingTypes lists the type keys accepted by @oxy:group, optionally wrapped in array<>.
var validBindingTypes = []AnnotationArg{
	AnnotationArgMorphVertex,
	AnnotationArgBlendParams,
	AnnotationArgWeights,
}

var validConstants = []AnnotationArg{
	AnnotationArgMaxTargetCount,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(annotationTypeConst):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy const annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validConstants, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown constant %q in @oxy const annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeConst,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires exactly five arguments (group, binding, address space, var name, type)", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation: %v", lineNum, args[1], err)
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation: %v", lineNum, args[2], err)
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		typeArg := args[5]
		if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
			typeArg = strings.TrimSuffix(inner, ">")
		}
		if !slices.Contains(validBindingTypes, AnnotationArg(typeArg)) {
			return nil, fmt.Errorf("line %d: unknown type %q in @oxy group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
