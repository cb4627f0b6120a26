// Command btpcmd hosts the Bluetooth PCM audio I/O engine as a standalone
// process for local testing: it loads a configuration file, starts the
// poll loop, and runs until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/btpcm/ioengine/internal/btlog"
	"github.com/btpcm/ioengine/internal/config"
	"github.com/btpcm/ioengine/internal/engine"
)

// cmdArgs is the command line arguments.
type cmdArgs struct {
	ConfigPath string
}

var args cmdArgs

var rootCmd = &cobra.Command{
	Use:   "btpcmd",
	Short: "Bluetooth PCM audio I/O engine",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(args)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&args.ConfigPath, "config", "c", "", "Path to the configuration file (required)")
	rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(args cmdArgs) error {
	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, _, err := btlog.Init(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	eng, err := engine.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer eng.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	wg, gctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return eng.Run(gctx)
	})

	log.Infow("btpcm engine started")
	if err := wg.Wait(); err != nil && err != context.Canceled {
		return fmt.Errorf("engine run: %w", err)
	}
	return nil
}
