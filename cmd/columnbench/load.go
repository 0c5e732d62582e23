package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/ethpandaops/columnbench/pkg/database"
	"github.com/ethpandaops/columnbench/pkg/loader"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Create the tables and bulk-load the dataset into both databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		return runLoad(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(ctx context.Context, cfg *config.Config) error {
	pair, err := database.Open(log, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := pair.Close(); err != nil {
			log.WithError(err).Warn("Failed to close database connections")
		}
	}()

	coord := loader.NewCoordinator(log, pair.Engines(), loader.Options{
		DataPath:        cfg.Dataset.Path,
		ContinueOnError: cfg.Load.ContinueOnError,
	})

	steps, err := coord.Run(ctx)

	for _, s := range steps {
		status := "ok"
		if s.Err != nil {
			status = "failed"
		}

		fmt.Printf("%-10s %-12s %-7s %s\n", s.Engine, s.Step, status, s.Duration)
	}

	if err == nil {
		log.Info("Load completed")

		return nil
	}

	if cfg.Load.ContinueOnError && !errors.Is(err, loader.ErrDataFileMissing) &&
		!errors.Is(err, context.Canceled) {
		log.WithError(err).Warn("Load completed with errors")

		return nil
	}

	return fmt.Errorf("loading data: %w", err)
}
