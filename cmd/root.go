package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trustschema/pkg/config"
	"trustschema/pkg/helper/log"

	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "trustschema",
		Short: "trustschema validates and signs named-data packets against a trust schema",
		Long:  `A command-line tool for interpreting trust-schema documents, validating signed packets against them, and planning signing chains for new certificates.`,
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cfg = config.NewDefaultConfig()
	cfg.AddFlagsToCommand(rootCmd)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newSignCmd())
	rootCmd.AddCommand(newAnchorsCmd())
	rootCmd.AddCommand(newPatternCmd())
}

// setupCommand creates a logger and a cancellable context that is
// cancelled on SIGINT/SIGTERM.
func setupCommand(ctx context.Context) (log.Logger, context.Context, context.CancelFunc) {
	logger := createLogger(cfg.LogLevel)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			logger.Info("received termination signal, shutting down")
			cancel()
		case <-ctx.Done():
			return
		}
	}()

	return logger, ctx, cancel
}

// createLogger builds a logger at the given level.
func createLogger(level string) log.Logger {
	return log.NewLoggerWithLevel(log.ParseLevel(level))
}
