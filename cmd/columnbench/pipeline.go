package main

import (
	"github.com/spf13/cobra"
)

var (
	pipelineSkipSetup    bool
	pipelineSkipGenerate bool
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run setup, generate, load, query and report in sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		if !pipelineSkipSetup {
			if err := runSetup(ctx, cfg, false); err != nil {
				return err
			}
		}

		if !pipelineSkipGenerate {
			if err := runGenerate(cfg); err != nil {
				return err
			}
		}

		if err := runLoad(ctx, cfg); err != nil {
			return err
		}

		if err := runQuery(ctx, cfg); err != nil {
			return err
		}

		return runReport(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.Flags().BoolVar(&pipelineSkipSetup, "skip-setup", false,
		"Assume the databases are already running")
	pipelineCmd.Flags().BoolVar(&pipelineSkipGenerate, "skip-generate", false,
		"Reuse the existing dataset file")
}
