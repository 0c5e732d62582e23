package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/columnbench/pkg/benchmark"
	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/ethpandaops/columnbench/pkg/database"
	"github.com/ethpandaops/columnbench/pkg/docker"
	"github.com/ethpandaops/columnbench/pkg/fsutil"
	"github.com/ethpandaops/columnbench/pkg/history"
	"github.com/ethpandaops/columnbench/pkg/stats"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run the query catalog against both databases",
	Long: `Time each catalog query on ClickHouse and then on MySQL, and write the
per-query timings and speedups to the results CSV.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		return runQuery(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func runQuery(ctx context.Context, cfg *config.Config) error {
	pair, err := database.Open(log, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := pair.Close(); err != nil {
			log.WithError(err).Warn("Failed to close database connections")
		}
	}()

	catalog := benchmark.DefaultCatalog()
	if len(cfg.Benchmark.Queries) > 0 {
		catalog = benchmark.CatalogFromConfig(cfg.Benchmark.Queries)
	}

	runner := benchmark.NewRunner(log, pair.Column, pair.Row, catalog, benchmark.Options{
		ContinueOnError: cfg.Benchmark.ContinueOnError,
		QueryTimeout:    cfg.Benchmark.QueryTimeout,
	})

	sampler, stopSampler := containerSampler(ctx, cfg)
	defer stopSampler()

	var before map[string]*stats.Stats
	if sampler != nil {
		before = sampler.Sample(ctx)
	}

	results, runErr := runner.Run(ctx)

	if sampler != nil {
		sampler.LogDeltas(before, sampler.Sample(ctx))
	}

	if err := benchmark.WriteCSVFile(cfg.Benchmark.ResultsFile, results); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	log.WithField("path", cfg.Benchmark.ResultsFile).Info("Results saved")

	chownOutputs(cfg, cfg.Benchmark.ResultsFile)

	if cfg.History.Enabled && len(results) > 0 {
		if err := saveHistory(ctx, cfg, results); err != nil {
			log.WithError(err).Warn("Failed to record run history")
		}
	}

	if runErr == nil {
		log.Info("Benchmark completed")

		return nil
	}

	if cfg.Benchmark.ContinueOnError && !errors.Is(runErr, context.Canceled) {
		log.WithError(runErr).Warn("Benchmark completed with errors")

		return nil
	}

	return fmt.Errorf("running benchmark: %w", runErr)
}

// chownOutputs applies report.results_owner to the written files.
func chownOutputs(cfg *config.Config, paths ...string) {
	owner, err := fsutil.ParseOwner(cfg.Report.ResultsOwner)
	if err != nil {
		log.WithError(err).Warn("Invalid results owner")

		return
	}

	if err := fsutil.ChownAll(owner, paths...); err != nil {
		log.WithError(err).Warn("Failed to set results ownership")
	}
}

// containerSampler returns a stats sampler over the running engine
// containers, or nil when sampling is disabled or Docker is unavailable.
func containerSampler(ctx context.Context, cfg *config.Config) (*stats.Sampler, func()) {
	noop := func() {}

	if !cfg.Benchmark.ContainerStats {
		return nil, noop
	}

	mgr, err := docker.NewManager(log)
	if err != nil {
		log.WithError(err).Warn("Container stats disabled")

		return nil, noop
	}

	stop := func() {
		if err := mgr.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop docker manager")
		}
	}

	if err := mgr.Start(ctx); err != nil {
		log.WithError(err).Warn("Container stats disabled")

		return nil, stop
	}

	containers, err := mgr.ListContainers(ctx)
	if err != nil {
		log.WithError(err).Warn("Container stats disabled")

		return nil, stop
	}

	ids := make(map[string]string, len(containers))

	for _, c := range containers {
		if engine := c.Labels[docker.LabelEngine]; engine != "" && c.State == "running" {
			ids[engine] = c.ID
		}
	}

	if len(ids) == 0 {
		log.Warn("No running engine containers found, container stats disabled")

		return nil, stop
	}

	return stats.NewSampler(log, mgr, ids), stop
}

// saveHistory records the run in the history database.
func saveHistory(ctx context.Context, cfg *config.Config, results []benchmark.Result) error {
	store := history.NewStore(log, &cfg.History)
	if err := store.Start(ctx); err != nil {
		return err
	}

	defer func() {
		if err := store.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close history store")
		}
	}()

	run, err := history.NewRun(results, datasetSize(cfg), time.Now())
	if err != nil {
		return err
	}

	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"run_id":  run.RunID,
		"queries": run.TotalQueries,
		"failed":  run.FailedQueries,
	}).Info("Recorded run history")

	return nil
}
