// pre_processor.go implements the kernel pre-processor. It scans kernel source for
// @oxy: annotations, replaces them with injected struct source, host constants or
// generated binding declarations, and collects the binding declarations so the
// resolver can check them against the compiled module.
package kernels

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
)

// registryEntry pairs a WGSL struct source (embedded from a .wgsl asset file) with the
// WGSL type name used in generated declarations. Plain types have no Source.
type registryEntry struct {
	Source string
	Type   string
}

// constEntry is a host constant emitted as a WGSL u32 const.
type constEntry struct {
	Name  string
	Value uint32
}

type preProcessor struct {
	typeRegistry         map[AnnotationArg]registryEntry
	constRegistry        map[AnnotationArg]constEntry
	addressSpaceRegistry map[AnnotationArg]string

	// declarations is reset at the start of each Process call.
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in kernel source.
type PreProcessor interface {
	// Process replaces every annotation in source with its WGSL output. @oxy:include is
	// replaced with the struct source, @oxy:const with a const declaration and @oxy:group
	// with a @group/@binding variable declaration.
	//
	// Parameters:
	//   - source: the raw WGSL kernel source
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if any annotation is malformed, unknown, or included twice
	Process(source string) (string, error)

	// Declarations returns the binding annotations collected by the last Process call,
	// in source order.
	//
	// Returns:
	//   - []Annotation: the binding declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor populated with the morph GPU types and host constants.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		typeRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgMorphVertex: {Source: morph.GPUMorphVertexSource, Type: "MorphVertex"},
			AnnotationArgBlendParams: {Source: morph.GPUBlendParamsSource, Type: "BlendParams"},
			AnnotationArgWeights:     {Type: "array<f32, MAX_TARGET_COUNT>"},
		},
		constRegistry: map[AnnotationArg]constEntry{
			AnnotationArgMaxTargetCount: {Name: "MAX_TARGET_COUNT", Value: morph.MaxTargetCount},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	emitted := make(map[AnnotationArg]int)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude, annotationTypeConst:
			if prev, ok := emitted[a.Args[0]]; ok {
				return "", fmt.Errorf("line %d: %q already emitted on line %d", a.Line, a.Args[0], prev)
			}
			emitted[a.Args[0]] = a.Line

			if a.Type == annotationTypeConst {
				c := p.constRegistry[a.Args[0]]
				out = append(out, fmt.Sprintf("const %s: u32 = %du;", c.Name, c.Value))
				continue
			}
			entry, ok := p.typeRegistry[a.Args[0]]
			if !ok || entry.Source == "" {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", a.Line, a.Args[0])
			}
			out = append(out, strings.TrimRight(entry.Source, "\n"))
		case AnnotationTypeBindingGroup:
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			varName := string(a.Args[1])
			var wgslType string
			if inner, ok := strings.CutPrefix(string(a.Args[2]), "array<"); ok {
				inner = strings.TrimSuffix(inner, ">")
				wgslType = fmt.Sprintf("array<%s>", p.typeRegistry[AnnotationArg(inner)].Type)
			} else {
				wgslType = p.typeRegistry[a.Args[2]].Type
			}

			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, varName, wgslType))
			p.declarations = append(p.declarations, *a)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", a.Line, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
