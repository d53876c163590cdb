// Command academiactl runs administrative tasks against the academia
// database: seeding modalities, creating staff users and printing the
// payment reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/academia-api/internal/app"
	"github.com/noah-isme/academia-api/pkg/config"
	"github.com/noah-isme/academia-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "academiactl",
		Short:         "Administrative commands for the academia API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSeedModalitiesCmd(),
		newCreateUserCmd(),
		newOverdueCmd(),
		newHistoryCmd(),
	)
	return root
}

// withContainer loads configuration, opens storage and runs fn.
func withContainer(fn func(*app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	container, err := app.New(cfg, logr)
	if err != nil {
		logr.Error("failed to initialise dependencies", zap.Error(err))
		return err
	}
	defer container.Close()

	return fn(container)
}
