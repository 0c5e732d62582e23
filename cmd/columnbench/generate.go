package main

import (
	"fmt"

	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/ethpandaops/columnbench/pkg/dataset"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	generateRows   int
	generateOutput string
	generateSeed   int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the synthetic web log dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("rows") {
			cfg.Dataset.Rows = generateRows
		}

		if cmd.Flags().Changed("output") {
			cfg.Dataset.Path = generateOutput
		}

		if cmd.Flags().Changed("seed") {
			cfg.Dataset.Seed = &generateSeed
		}

		return runGenerate(cfg)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().IntVarP(&generateRows, "rows", "n", config.DefaultRows,
		"Number of records to generate")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", config.DefaultDatasetPath,
		"Output CSV path")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0,
		"Random seed for reproducible output")
}

func runGenerate(cfg *config.Config) error {
	gen := dataset.NewGenerator(cfg.Dataset.Seed)

	if err := gen.WriteFile(cfg.Dataset.Path, cfg.Dataset.Rows); err != nil {
		return fmt.Errorf("generating dataset: %w", err)
	}

	log.WithFields(logrus.Fields{
		"path": cfg.Dataset.Path,
		"rows": cfg.Dataset.Rows,
	}).Info("Generated dataset")

	return nil
}
