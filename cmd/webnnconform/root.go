package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-webnn-conformance/internal/config"
	"github.com/example/go-webnn-conformance/internal/runtime/parallel"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "webnnconform",
		Short:         "WebNN operator conformance checker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			if err := setupLogger(cmd.ErrOrStderr(), loaded); err != nil {
				return err
			}
			activeCfg = loaded
			parallel.SetWorkers(loaded.Runtime.Threads)
			slog.Debug("config loaded", "backend", loaded.Conformance.Backend, "fixtures", loaded.Paths.FixturesDir,
				"threads", parallel.Workers())
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml|toml|json); defaults to ./webnnconform.*")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newOpsCmd())
	cmd.AddCommand(newToleranceCmd())
	cmd.AddCommand(newHalfCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// setupLogger installs the process-wide slog default from cfg.
func setupLogger(w io.Writer, cfg config.Config) error {
	logger, err := config.NewLogger(w, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func requireConfig() (config.Config, error) {
	if activeCfg.Paths.FixturesDir == "" {
		return config.Config{}, errors.New("webnnconform: no fixtures directory configured")
	}
	return activeCfg, nil
}
