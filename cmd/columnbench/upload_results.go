package main

import (
	"fmt"

	"github.com/ethpandaops/columnbench/pkg/report"
	"github.com/ethpandaops/columnbench/pkg/upload"
	"github.com/spf13/cobra"
)

var (
	uploadBundleName string
	uploadList       bool
)

var uploadResultsCmd = &cobra.Command{
	Use:   "upload-results",
	Short: "Upload a report bundle to S3-compatible storage",
	Long: `Upload the report bundle identified by its timestamp from the report output
directory, or list the bundles already uploaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if !cfg.S3Enabled() {
			return fmt.Errorf("S3 upload is not configured or not enabled in config")
		}

		ctx, cancel := signalContext()
		defer cancel()

		if uploadList {
			uploader, err := upload.NewS3Uploader(log, cfg.ResultsUpload.S3)
			if err != nil {
				return fmt.Errorf("creating S3 uploader: %w", err)
			}

			bundles, err := uploader.ListBundles(ctx)
			if err != nil {
				return err
			}

			for _, b := range bundles {
				fmt.Println(b)
			}

			return nil
		}

		if uploadBundleName == "" {
			return fmt.Errorf("--bundle is required unless --list is given")
		}

		files := report.FileNames(cfg.Report.OutputDir, uploadBundleName)

		log.WithField("bundle", uploadBundleName).Info("Uploading report bundle")

		if err := uploadBundle(ctx, cfg, uploadBundleName, files.Paths()); err != nil {
			return fmt.Errorf("uploading bundle: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadResultsCmd)
	uploadResultsCmd.Flags().StringVar(&uploadBundleName, "bundle", "",
		"Bundle name to upload (e.g. 20240102_030405)")
	uploadResultsCmd.Flags().BoolVar(&uploadList, "list", false,
		"List uploaded bundles instead of uploading")
}
