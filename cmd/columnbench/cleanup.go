package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethpandaops/columnbench/pkg/docker"
	"github.com/ethpandaops/columnbench/pkg/provision"
	"github.com/spf13/cobra"
)

var (
	forceCleanup bool
	cleanupData  bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove the columnbench database containers",
	Long: `Remove every container labelled as managed by columnbench. With --data the
bind-mounted database directories are removed as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()

		return withProvisioner(ctx, cfg, func(mgr docker.Manager, prov provision.Provisioner) error {
			if err := mgr.Start(ctx); err != nil {
				return err
			}

			var dataDirs []string
			if cleanupData {
				for _, svc := range prov.Services() {
					dataDirs = append(dataDirs, svc.DataDir)
				}
			}

			return performCleanup(ctx, mgr, dataDirs, forceCleanup)
		})
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVarP(&forceCleanup, "force", "f", false, "Skip confirmation prompt")
	cleanupCmd.Flags().BoolVar(&cleanupData, "data", false, "Also remove the database data directories")
}

// performCleanup lists and removes all managed containers and the given
// data directories.
func performCleanup(ctx context.Context, mgr docker.Manager, dataDirs []string, force bool) error {
	containers, err := mgr.ListContainers(ctx)
	if err != nil {
		return fmt.Errorf("listing containers: %w", err)
	}

	var dirs []string

	for _, d := range dataDirs {
		if _, err := os.Stat(d); err == nil {
			dirs = append(dirs, d)
		}
	}

	if len(containers) == 0 && len(dirs) == 0 {
		log.Info("No columnbench resources found")

		return nil
	}

	if len(containers) > 0 {
		fmt.Printf("\nContainers to be removed (%d):\n", len(containers))

		for _, c := range containers {
			fmt.Printf("  - %s (%s, %s)\n", c.Name, c.ID[:min(12, len(c.ID))], c.State)
		}
	}

	if len(dirs) > 0 {
		fmt.Printf("\nData directories to be removed (%d):\n", len(dirs))

		for _, d := range dirs {
			fmt.Printf("  - %s\n", d)
		}
	}

	fmt.Println()

	if !force {
		fmt.Print("Are you sure you want to remove these resources? [y/N] ")

		reader := bufio.NewReader(os.Stdin)

		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			log.Info("Cleanup cancelled")

			return nil
		}
	}

	for _, c := range containers {
		log.WithField("container", c.Name).Info("Removing container")

		if err := mgr.RemoveContainer(ctx, c.ID); err != nil {
			log.WithError(err).WithField("container", c.Name).Warn("Failed to remove container")
		}
	}

	for _, d := range dirs {
		log.WithField("dir", d).Info("Removing data directory")

		if err := os.RemoveAll(d); err != nil {
			log.WithError(err).WithField("dir", d).Warn("Failed to remove data directory")
		}
	}

	log.Info("Cleanup completed")

	return nil
}
