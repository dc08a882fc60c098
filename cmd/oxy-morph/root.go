package main

import (
	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-morph/engine/config"
	"github.com/Carmen-Shannon/oxy-morph/engine/logger"
)

// app holds the state shared by every subcommand once the root flags are parsed.
type app struct {
	configPath string
	backend    string
	logLevel   string
	logFormat  string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "oxy-morph",
		Short:         "Blend glTF morph targets on the CPU or the GPU",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "TOML config file")
	flags.StringVar(&a.backend, "backend", "", "blend backend: cpu or gpu (overrides the config)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text, json, logfmt")

	root.AddCommand(
		newBlendCmd(a),
		newInspectCmd(a),
		newPlayCmd(a),
		newWatchCmd(a),
	)
	return root
}

// load reads the config, applies flag overrides and configures the shared logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Compute.Backend = a.backend
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.SetOutput(cmd.ErrOrStderr())
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}
