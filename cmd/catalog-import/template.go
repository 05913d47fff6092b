package main

import (
	"fmt"
	"os"

	"catalog-service/internal/handlers"
	"catalog-service/internal/models"
	"github.com/spf13/cobra"
)

func newTemplateCmd() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write an empty import template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeTemplate(format, out)
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Template format: csv or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "Output file (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func writeTemplate(format, out string) error {
	template := models.ProductImportTemplate()

	switch format {
	case "csv":
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := handlers.WriteCSVTemplate(f, template); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case "xlsx":
		wb, err := handlers.BuildXLSXTemplate(template)
		if err != nil {
			return err
		}
		defer wb.Close()
		return wb.SaveAs(out)
	default:
		return fmt.Errorf("invalid --format %q: expected csv or xlsx", format)
	}
}
