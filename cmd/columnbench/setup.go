package main

import (
	"context"
	"fmt"

	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/ethpandaops/columnbench/pkg/docker"
	"github.com/ethpandaops/columnbench/pkg/engine"
	"github.com/ethpandaops/columnbench/pkg/provision"
	"github.com/spf13/cobra"
)

var setupDescriptorOnly bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Start the ClickHouse and MySQL containers",
	Long: `Write the docker-compose descriptor and start both database containers
through the Docker Engine API, then wait for the startup grace period.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		return runSetup(ctx, cfg, setupDescriptorOnly)
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().BoolVar(&setupDescriptorOnly, "descriptor-only", false,
		"Only write the docker-compose descriptor, do not start containers")
}

// withProvisioner connects to Docker and hands a provisioner to fn.
func withProvisioner(
	ctx context.Context,
	cfg *config.Config,
	fn func(docker.Manager, provision.Provisioner) error,
) error {
	mgr, err := docker.NewManager(log)
	if err != nil {
		return fmt.Errorf("creating docker manager: %w", err)
	}

	defer func() {
		if err := mgr.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop docker manager")
		}
	}()

	prov, err := provision.NewProvisioner(log, cfg, mgr, engine.NewRegistry())
	if err != nil {
		return fmt.Errorf("building services: %w", err)
	}

	return fn(mgr, prov)
}

func runSetup(ctx context.Context, cfg *config.Config, descriptorOnly bool) error {
	return withProvisioner(ctx, cfg, func(mgr docker.Manager, prov provision.Provisioner) error {
		if err := prov.WriteDescriptor(cfg.Provision.DescriptorPath); err != nil {
			return err
		}

		log.WithField("path", cfg.Provision.DescriptorPath).Info("Wrote compose descriptor")

		if descriptorOnly {
			return nil
		}

		if err := mgr.Start(ctx); err != nil {
			return err
		}

		if err := prov.Up(ctx); err != nil {
			return fmt.Errorf("starting databases: %w", err)
		}

		log.Info("Databases started")

		return nil
	})
}
