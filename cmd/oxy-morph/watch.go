package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-morph/engine"
	"github.com/Carmen-Shannon/oxy-morph/engine/loader"
	"github.com/Carmen-Shannon/oxy-morph/engine/logger"
	"github.com/Carmen-Shannon/oxy-morph/engine/model"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
)

func newWatchCmd(a *app) *cobra.Command {
	var meshName, weights string
	cmd := &cobra.Command{
		Use:   "watch <model.gltf|model.glb>",
		Short: "Re-blend a mesh and print one JSON line each time the file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engine.NewEngine(engine.WithConfig(a.cfg))
			if err != nil {
				return err
			}
			defer e.Release()

			log := logger.Component("watch")
			s := e.NewScene(0, "watch")
			out := cmd.OutOrStdout()
			var current uuid.UUID

			blend := func(imported *model.ImportedModel) error {
				src, err := loader.SelectMesh(imported, meshName)
				if err != nil {
					return err
				}
				mesh := model.FromImported(*src)
				w, err := parseWeights(weights, mesh)
				if err != nil {
					return err
				}

				id, m, err := s.NewMorpher(e.Backend(), mesh)
				if err != nil {
					return err
				}
				s.Remove(current)
				current = id
				if weights != "" {
					m.SetTargetWeights(w, morph.Immediate)
				}
				if _, err := e.Step(0); err != nil {
					return err
				}
				return writeBlend(out, mesh, e.Backend().String(), m.Weights(), m.Attributes(), m.Output(), false)
			}

			imported, err := e.Loader().Load(args[0])
			if err != nil {
				return err
			}
			if err := blend(imported); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err = e.Loader().Watch(ctx, args[0], func(imported *model.ImportedModel, err error) {
				if err == nil {
					err = blend(imported)
				}
				if err != nil {
					log.Warn("re-blend failed, keeping the previous output", "path", args[0], "err", err)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&meshName, "mesh", "m", "", "mesh name (default: first mesh with morph targets)")
	cmd.Flags().StringVarP(&weights, "weights", "w", "", "weights to apply after each reload (default: the mesh weights)")
	return cmd
}
