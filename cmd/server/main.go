package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlemzhanJ/chooseApp/internal/config"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev" // Set at build time via -ldflags

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		zerologlog.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:     "chooseapp",
		Short:   "Finger-picking party game backend",
		Long:    `HTTP + Socket.IO API for game sessions and the task bank. Commands: serve, migrate, seed.`,
		Args:    cobra.NoArgs,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Bind(cmd.Flags()); err != nil {
				return err
			}
			setupLogging(cfg)
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	cfg.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(cfg), newMigrateCmd(cfg), newSeedCmd(cfg))

	root.CompletionOptions.HiddenDefaultCmd = true
	root.SetVersionTemplate("chooseapp {{.Version}}\n")
	root.SilenceErrors = true
	root.SilenceUsage = true
	return root
}

// setupLogging uses a human-friendly console in development and JSON otherwise.
func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.Production() {
		cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		zerologlog.Logger = zerologlog.Output(cw)
	}
}
