package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ethpandaops/columnbench/pkg/history"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded benchmark runs, or show one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		store := history.NewStore(log, &cfg.History)
		if err := store.Start(ctx); err != nil {
			return err
		}

		defer func() {
			if err := store.Stop(); err != nil {
				log.WithError(err).Warn("Failed to close history store")
			}
		}()

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer tw.Flush()

		if len(args) == 1 {
			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}

			results, err := run.Results()
			if err != nil {
				return err
			}

			fmt.Fprintln(tw, "QUERY\tCLICKHOUSE (s)\tMYSQL (s)\tSPEEDUP\tROWS\tERROR")

			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.2fx\t%d\t%s\n",
					r.Query, r.ClickHouseTime, r.MySQLTime, r.Speedup, r.RowsReturned, r.Error)
			}

			return nil
		}

		runs, err := store.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}

		fmt.Fprintln(tw, "RUN ID\tDATE\tROWS\tQUERIES\tFAILED\tAVG SPEEDUP\tBEST\tWORST")

		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.2fx\t%s\t%s\n",
				r.RunID,
				time.Unix(r.Timestamp, 0).Format(time.DateTime),
				r.DatasetSize,
				r.TotalQueries,
				r.FailedQueries,
				r.AverageSpeedup,
				r.BestQuery,
				r.WorstQuery,
			)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list (0 for all)")
}
