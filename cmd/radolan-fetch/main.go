package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/jddeal/go-radolan/catalog"
	"github.com/jddeal/go-radolan/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	source      string
	bucket      string
	prefix      string
	region      string
	credentials string
	outDir      string
	since       time.Duration
	parallel    int
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "radolan-fetch [flags] <product>",
	Short: "Mirror recent RADOLAN files from S3 or GCS into a local directory.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fetch(cmd.Context(), args[0])
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVarP(&source, "source", "s", "s3", "object store, s3 or gcs")
	rootCmd.Flags().StringVarP(&bucket, "bucket", "b", "", "bucket holding the files")
	rootCmd.Flags().StringVarP(&prefix, "prefix", "p", "", "key prefix inside the bucket")
	rootCmd.Flags().StringVar(&region, "region", "eu-central-1", "AWS region of the bucket")
	rootCmd.Flags().StringVar(&credentials, "credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "GCS service account file, anonymous when empty")
	rootCmd.Flags().StringVarP(&outDir, "out", "o", ".", "destination directory")
	rootCmd.Flags().DurationVar(&since, "since", 3*time.Hour, "how far back to mirror")
	rootCmd.Flags().IntVarP(&parallel, "parallel", "j", 4, "concurrent downloads")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "logging level (error, info, debug, trace)")
	rootCmd.MarkFlagRequired("bucket")
}

func openCatalog(ctx context.Context) (catalog.Catalog, error) {
	switch source {
	case "s3":
		return catalog.NewAnonymousS3Catalog(region, bucket, prefix)
	case "gcs":
		client, err := catalog.NewGCSClient(ctx, credentials)
		if err != nil {
			return nil, err
		}
		return catalog.NewGCSCatalog(client, bucket, prefix), nil
	}
	return nil, fmt.Errorf("unknown source %q", source)
}

func fetch(ctx context.Context, product string) error {
	if err := observability.ConfigureLogging(logLevel, "text"); err != nil {
		return err
	}

	src, err := openCatalog(ctx)
	if err != nil {
		return err
	}

	entries, err := src.List(ctx, product)
	if err != nil {
		return fmt.Errorf("listing %s: %w", bucket, err)
	}
	entries = catalog.Recent(entries, clockwork.NewRealClock(), since)
	if len(entries) == 0 {
		logrus.Infof("no %s files in the last %v", product, since)
		return nil
	}

	logrus.Info(color.CyanString("mirroring %d %s files to %s", len(entries), product, outDir))

	bar := pb.StartNew(len(entries))
	err = catalog.Mirror(ctx, src, entries, outDir, parallel, func(catalog.Entry) {
		bar.Increment()
	})
	bar.Finish()
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
