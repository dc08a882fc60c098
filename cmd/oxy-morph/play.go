package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-morph/engine"
	"github.com/Carmen-Shannon/oxy-morph/engine/logger"
	"github.com/Carmen-Shannon/oxy-morph/engine/morph"
)

type playFlags struct {
	mesh     string
	weights  string
	mode     string
	duration float32
	bounce   float32
	runFor   time.Duration
	profile  bool
}

func newPlayCmd(a *app) *cobra.Command {
	f := &playFlags{}
	cmd := &cobra.Command{
		Use:   "play <model.gltf|model.glb>",
		Short: "Run the engine loop, animating weights between the rest pose and a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []engine.EngineBuilderOption{engine.WithConfig(a.cfg)}
			if f.profile {
				opts = append(opts, engine.WithProfiling(true))
			}
			e, err := engine.NewEngine(opts...)
			if err != nil {
				return err
			}
			defer e.Release()

			mesh, err := e.Loader().LoadMorphMesh(args[0], f.mesh)
			if err != nil {
				return err
			}
			target, err := parseWeights(f.weights, mesh)
			if err != nil {
				return err
			}
			if f.weights == "" {
				target = morph.NewWeightVector(1, 1, 1).WithActive(mesh.TargetCount())
			}
			anim, err := parseAnimation(f.mode, f.duration, f.bounce)
			if err != nil {
				return err
			}

			m, err := newSceneMorpher(e, e.NewScene(0, "play"), mesh, false)
			if err != nil {
				return err
			}

			// Ping-pong between the rest pose and the target whenever an animation settles.
			log := logger.Component("play")
			rest := morph.ZeroWeights(mesh.TargetCount())
			forward := true
			m.SetTargetWeights(target, anim)
			e.SetTickCallback(func(float32) {
				if m.Animating() {
					return
				}
				forward = !forward
				next := target
				if !forward {
					next = rest
				}
				log.Debug("animating", "mesh", mesh.Name(), "weights", next.Slice())
				m.SetTargetWeights(next, anim)
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if f.runFor > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, f.runFor)
				defer cancel()
			}

			log.Info("playing", "mesh", mesh.Name(), "backend", e.Backend(), "vertices", mesh.VertexCount(), "mode", f.mode)
			err = e.Run(ctx)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&f.mesh, "mesh", "m", "", "mesh name (default: first mesh with morph targets)")
	cmd.Flags().StringVarP(&f.weights, "weights", "w", "", "target weights (default: every target at 1)")
	cmd.Flags().StringVar(&f.mode, "mode", "cubic", "animation curve: linear, cubic, spring")
	cmd.Flags().Float32Var(&f.duration, "duration", 1, "seconds per animation leg")
	cmd.Flags().Float32Var(&f.bounce, "bounce", morph.DefaultSpringBounce, "spring overshoot")
	cmd.Flags().DurationVar(&f.runFor, "for", 0, "stop after this long (default: until interrupted)")
	cmd.Flags().BoolVar(&f.profile, "profile", false, "log throughput and memory statistics")
	return cmd
}
