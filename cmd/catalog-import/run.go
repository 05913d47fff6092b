package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"catalog-service/internal/config"
	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type runOptions struct {
	replaceExisting bool
	format          string
	jobID           string
	jsonOutput      bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Import a catalog file into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.replaceExisting, "replace-existing", false, "Delete every product before importing")
	cmd.Flags().StringVar(&opts.format, "format", "", "File format: csv or xlsx (default: from extension)")
	cmd.Flags().StringVar(&opts.jobID, "job-id", "", "Checkpoint the run under this id so it can be resumed (needs Redis)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the summary as JSON")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		_, err := parseFormat(opts.format)
		return err
	}

	return cmd
}

func parseFormat(value string) (models.ImportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return "", nil
	case "csv":
		return models.ImportFormatCSV, nil
	case "xlsx":
		return models.ImportFormatXLSX, nil
	default:
		return "", fmt.Errorf("invalid --format %q: expected csv or xlsx", value)
	}
}

func runImport(ctx context.Context, out io.Writer, path string, opts runOptions) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	backend, err := config.OpenCatalogStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	importerOpts := []importer.Option{importer.WithLogger(logger)}

	source := importer.RoutingSource{Local: importer.LocalSource{}}
	if strings.HasPrefix(path, "s3://") {
		client, err := config.NewS3Client(ctx, cfg)
		if err != nil {
			return err
		}
		source.S3 = importer.S3Source{Client: client}
	}
	importerOpts = append(importerOpts, importer.WithSource(source))

	if opts.jobID != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("--job-id needs redis: %w", err)
		}
		importerOpts = append(importerOpts, importer.WithCheckpointer(importer.NewRedisCheckpointer(client)))
	}

	format, _ := parseFormat(opts.format)
	result, runErr := importer.New(backend.Store, importerOpts...).ImportCatalog(ctx, path, importer.Options{
		ReplaceExisting: opts.replaceExisting,
		Format:          format,
		JobID:           opts.jobID,
	})
	if result != nil {
		if err := printSummary(out, result.Summary(cfg.ImportSampleLimit), opts.jsonOutput); err != nil {
			return err
		}
	}
	return runErr
}

func printSummary(out io.Writer, summary models.ImportSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Fprintln(out, summary.Message)
	if summary.WarningCount > 0 {
		fmt.Fprintf(out, "Warnings: %d\n", summary.WarningCount)
	}
	if len(summary.Duplicates) > 0 {
		fmt.Fprintln(out, "Duplicates:")
		for _, name := range summary.Duplicates {
			fmt.Fprintf(out, "  - %s\n", name)
		}
	}
	if len(summary.Errors) > 0 {
		fmt.Fprintln(out, "Errors:")
		for _, msg := range summary.Errors {
			fmt.Fprintf(out, "  - %s\n", msg)
		}
	}
	return nil
}
