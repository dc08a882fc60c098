package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-morph/engine/model"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
)

// parseWeights reads a weight list for mesh. Entries are either positional ("0.5,0.25") or
// named ("smile=0.5,blink=1"); the two forms cannot be mixed. Missing weights are zero.
func parseWeights(s string, mesh model.MorphMesh) (morph.WeightVector, error) {
	w := morph.ZeroWeights(mesh.TargetCount())
	s = strings.TrimSpace(s)
	if s == "" {
		return w, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) > mesh.TargetCount() {
		return w, fmt.Errorf("%d weights given for %d targets", len(parts), mesh.TargetCount())
	}
	named := strings.Contains(parts[0], "=")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		name, value, hasName := strings.Cut(part, "=")
		if hasName != named {
			return w, fmt.Errorf("weight %q: cannot mix named and positional weights", part)
		}
		idx := i
		if hasName {
			value = strings.TrimSpace(value)
			if idx = mesh.TargetIndex(strings.TrimSpace(name)); idx < 0 {
				return w, fmt.Errorf("weight %q: mesh %q has no target %q (targets: %s)", part, mesh.Name(), name, strings.Join(mesh.TargetNames(), ", "))
			}
		} else {
			value = name
		}
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return w, fmt.Errorf("weight %q: %w", part, err)
		}
		w.Weights[idx] = float32(f)
	}
	return w, nil
}

// parseAnimation maps a mode name and duration onto a morph.Animation.
func parseAnimation(mode string, duration, bounce float32) (morph.Animation, error) {
	switch strings.ToLower(mode) {
	case "linear":
		return morph.Linear(duration), nil
	case "cubic":
		return morph.Cubic(duration), nil
	case "spring":
		return morph.Spring(duration, bounce), nil
	}
	return morph.Animation{}, fmt.Errorf("unknown animation mode %q (linear, cubic, spring)", mode)
}

type vertexJSON struct {
	Position [3]float32  `json:"position"`
	Normal   *[3]float32 `json:"normal,omitempty"`
	Tangent  *[4]float32 `json:"tangent,omitempty"`
}

type blendJSON struct {
	Mesh     string       `json:"mesh"`
	Backend  string       `json:"backend"`
	Targets  []string     `json:"targets"`
	Weights  []float32    `json:"weights"`
	Vertices []vertexJSON `json:"vertices"`
}

// writeBlend encodes blended vertices, keeping only the attributes that were blended.
func writeBlend(out io.Writer, mesh model.MorphMesh, backend string, w morph.WeightVector, attrs morph.Attributes, vertices []morph.Vertex, indent bool) error {
	doc := blendJSON{
		Mesh:     mesh.Name(),
		Backend:  backend,
		Targets:  mesh.TargetNames(),
		Weights:  w.Slice(),
		Vertices: make([]vertexJSON, len(vertices)),
	}
	for i := range vertices {
		v := &vertices[i]
		doc.Vertices[i].Position = v.Position
		if attrs.Has(morph.AttributeNormal) {
			doc.Vertices[i].Normal = &v.Normal
		}
		if attrs.Has(morph.AttributeTangent) {
			doc.Vertices[i].Tangent = &v.Tangent
		}
	}

	enc := json.NewEncoder(out)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}
