// Package cli provides the invoicectl command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/config"
	"github.com/garyjia/ap-invoice-intake/internal/container"
	"github.com/garyjia/ap-invoice-intake/pkg/utils"
)

// Version is set at build time.
var Version = "1.0.0"

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	app    *container.Container
)

var rootCmd = &cobra.Command{
	Use:   "invoicectl",
	Short: "Operate the vendor invoice intake pipeline",
	Long: `invoicectl runs the invoice intake pipeline once from the command line.

It reads the same configuration as the server, processes tickets waiting in
the new-invoices stage, bootstraps the stage table and exports batch reports.
The background worker is never started from the CLI.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		loaded.Pipeline.WorkerEnabled = false
		if verbose {
			loaded.Logger.Level = "debug"
		}
		cfg = loaded

		logger, err = utils.NewLogger(utils.LoggerConfig{
			Level:      cfg.Logger.Level,
			OutputPath: "stderr",
			Format:     "console",
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeApp()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command until it finishes or SIGINT/SIGTERM arrives.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeApp()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// closeApp releases the container; PersistentPostRun is skipped when RunE fails.
func closeApp() {
	if app != nil {
		if err := app.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close: %v\n", err)
		}
		app = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// startApp builds and starts the container for commands that need services.
func startApp(cmd *cobra.Command) (*container.Container, error) {
	c, err := container.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(cmd.Context()); err != nil {
		_ = c.Close()
		return nil, err
	}
	app = c
	return c, nil
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
