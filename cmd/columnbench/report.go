package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/ethpandaops/columnbench/pkg/dataset"
	"github.com/ethpandaops/columnbench/pkg/report"
	"github.com/ethpandaops/columnbench/pkg/upload"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the benchmark results and write the report bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		return runReport(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(ctx context.Context, cfg *config.Config) error {
	results, err := report.Load(cfg.Benchmark.ResultsFile)
	if err != nil {
		if errors.Is(err, report.ErrResultsNotFound) {
			fmt.Println("No benchmark results found. Run `columnbench query` first.")

			return nil
		}

		return err
	}

	reporter := report.NewReporter(log, report.Options{
		OutputDir:     cfg.Report.OutputDir,
		DatasetSize:   datasetSize(cfg),
		CollectSystem: cfg.Report.CollectSystem,
	})

	bundle, files, err := reporter.Generate(ctx, results)
	if err != nil {
		if errors.Is(err, report.ErrNoResults) {
			fmt.Println("The results file contains no successful queries.")

			return nil
		}

		return fmt.Errorf("generating report: %w", err)
	}

	chownOutputs(cfg, files.Paths()...)

	if err := report.WriteText(os.Stdout, results, bundle.Summary); err != nil {
		return fmt.Errorf("printing report: %w", err)
	}

	if cfg.S3Enabled() {
		if err := uploadBundle(ctx, cfg, files.Name, files.Paths()); err != nil {
			log.WithError(err).Warn("Failed to upload report bundle")
		}
	}

	return nil
}

// uploadBundle uploads the bundle files to S3 under the bundle name.
func uploadBundle(ctx context.Context, cfg *config.Config, name string, paths []string) error {
	uploader, err := upload.NewS3Uploader(log, cfg.ResultsUpload.S3)
	if err != nil {
		return fmt.Errorf("creating S3 uploader: %w", err)
	}

	if err := uploader.Preflight(ctx); err != nil {
		return err
	}

	return uploader.UploadFiles(ctx, name, paths)
}

// datasetSize counts the records in the generated dataset, falling back to
// the configured row count when the file cannot be read.
func datasetSize(cfg *config.Config) int {
	f, err := os.Open(cfg.Dataset.Path)
	if err != nil {
		return cfg.Dataset.Rows
	}

	defer f.Close()

	n, err := dataset.CountRecords(f)
	if err != nil {
		log.WithError(err).Debug("Failed to count dataset records")

		return cfg.Dataset.Rows
	}

	return n
}
