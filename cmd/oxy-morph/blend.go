package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-morph/engine"
	"github.com/Carmen-Shannon/oxy-morph/engine/model"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
	"github.com/Carmen-Shannon/oxy-morph/engine/renderer/morpher"
	"github.com/Carmen-Shannon/oxy-morph/engine/scene"
)

type blendFlags struct {
	mesh         string
	weights      string
	debugNormals bool
	compact      bool
}

func newBlendCmd(a *app) *cobra.Command {
	f := &blendFlags{}
	cmd := &cobra.Command{
		Use:   "blend <model.gltf|model.glb>",
		Short: "Blend a mesh at the given weights and print the vertices as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engine.NewEngine(engine.WithConfig(a.cfg))
			if err != nil {
				return err
			}
			defer e.Release()

			mesh, err := e.Loader().LoadMorphMesh(args[0], f.mesh)
			if err != nil {
				return err
			}
			w, err := parseWeights(f.weights, mesh)
			if err != nil {
				return err
			}

			s := e.NewScene(0, "blend")
			m, err := newSceneMorpher(e, s, mesh, f.debugNormals)
			if err != nil {
				return err
			}
			if f.weights != "" {
				m.SetTargetWeights(w, morph.Immediate)
			}
			if _, err := e.Step(0); err != nil {
				return err
			}
			return writeBlend(cmd.OutOrStdout(), mesh, e.Backend().String(), m.Weights(), m.Attributes(), m.Output(), !f.compact)
		},
	}
	cmd.Flags().StringVarP(&f.mesh, "mesh", "m", "", "mesh name (default: first mesh with morph targets)")
	cmd.Flags().StringVarP(&f.weights, "weights", "w", "", `weights, positional "0.5,0.25" or named "smile=0.5" (default: the mesh weights)`)
	cmd.Flags().BoolVar(&f.debugNormals, "debug-normals", false, "blend normals even when the targets carry none")
	cmd.Flags().BoolVar(&f.compact, "compact", false, "write JSON on one line")
	return cmd
}

// newSceneMorpher creates the morpher for mesh on the engine's backend.
func newSceneMorpher(e engine.Engine, s scene.Scene, mesh model.MorphMesh, debugNormals bool) (morpher.Morpher, error) {
	_, m, err := s.NewMorpher(e.Backend(), mesh, morpher.WithDebugNormals(debugNormals))
	if err != nil {
		return nil, fmt.Errorf("blend %q: %w", mesh.Name(), err)
	}
	return m, nil
}
