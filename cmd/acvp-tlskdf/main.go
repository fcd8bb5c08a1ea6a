package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"acvp-tlskdf/shared"
)

// app carries state shared by every subcommand once the root has run.
type app struct {
	envFile string
	logDev  bool
	level   string

	cfg    *shared.Config
	logger *shared.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "acvp-tlskdf",
		Short:         "Run ACVP TLS KDF vector sets against a pluggable backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var envFiles []string
			if a.envFile != "" {
				envFiles = append(envFiles, a.envFile)
			}
			cfg, err := shared.LoadConfig(envFiles...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dev") {
				cfg.LogDevelopment = a.logDev
			}
			if a.level != "" {
				cfg.LogLevel = a.level
			}
			a.cfg = cfg

			logger, err := shared.NewLoggerFromConfig("acvp-tlskdf", cfg)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file to load (default .env when present)")
	root.PersistentFlags().BoolVar(&a.logDev, "dev", false, "development console logging")
	root.PersistentFlags().StringVar(&a.level, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCommand(a), newDeriveCommand(a), newBackendsCommand(a))
	return root
}

func (a *app) zlog() *zap.Logger { return a.logger.Logger }
