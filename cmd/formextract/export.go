package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/access-form-extractor/constants"
	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/export"
	"github.com/joseph-ayodele/access-form-extractor/internal/repository"
)

var (
	exportFormat string
	exportOut    string
	exportStatus string
	exportSince  time.Duration
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored records as CSV or XLSX",
	Long: `Export the records of stored submissions, one row per form, with the
record field names as column headers.

Examples:
  formextract export --format csv --out demandes.csv
  formextract export --format xlsx --out demandes.xlsx --since 168h
  formextract export --status INFERRED`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format := strings.ToLower(exportFormat)
		if format == export.FormatXLSX && exportOut == "" {
			return fmt.Errorf("%w: --out is required for xlsx", common.ErrInvalidInput)
		}

		filter := repository.ListFilter{Limit: exportLimit}
		if exportStatus != "" {
			filter.Status = constants.SubmissionStatus(strings.ToUpper(exportStatus))
		}
		if exportSince > 0 {
			filter.Since = time.Now().Add(-exportSince)
		}

		db, err := openStore(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close(logger)

		var w io.Writer = cmd.OutOrStdout()
		var f *os.File
		if exportOut != "" {
			if f, err = os.Create(exportOut); err != nil {
				return err
			}
			w = f
		}

		n, err := export.NewService(repositoryFor(db), logger).Export(ctx, format, w, filter)
		if f != nil {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
		if err != nil {
			return err
		}
		if exportOut != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records to %s\n", n, exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatCSV, "csv or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout, csv only)")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "only submissions with this status")
	exportCmd.Flags().DurationVar(&exportSince, "since", 0, "only submissions created within this window")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "maximum number of submissions, 0 for all")

	rootCmd.AddCommand(exportCmd)
}
