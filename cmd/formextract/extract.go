package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/access-form-extractor/internal/export"
	"github.com/joseph-ayodele/access-form-extractor/internal/pipeline"
)

var (
	extractCSV   string
	extractXLSX  string
	extractNoLLM bool
	extractText  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <form.pdf>",
	Short: "Extract one form and print its record as JSON",
	Long: `Extract a single form and print the validated record on stdout.

Unresolved fields are printed as "N/A" (or [] for system access).

Examples:
  formextract extract demande.pdf
  formextract extract demande.pdf --no-llm
  formextract extract demande.pdf --csv out.csv --xlsx out.xlsx
  formextract extract --text form.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		proc, err := newProcessor(cfg, logger, extractNoLLM)
		if err != nil {
			return err
		}

		path := args[0]
		var out pipeline.Outcome
		if extractText {
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			out, err = proc.ProcessText(ctx, string(raw))
			if err != nil {
				return err
			}
		} else if out, err = proc.Process(ctx, path); err != nil {
			return err
		}
		logger.Info("extract.ok",
			"path", path,
			"method", out.Document.Method,
			"missing", out.Missing,
			"inferred", out.InferredFields(),
			"resolver_error", out.Resolver.Err,
			"elapsed_ms", out.Duration.Milliseconds(),
		)

		rec, err := json.MarshalIndent(out.Record, "", "  ")
		if err != nil {
			return err
		}
		rows := []export.Row{{Record: out.Record, Source: filepath.Base(path)}}

		if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(rec)); err != nil {
			return err
		}
		if extractCSV != "" {
			if err := writeCSVFile(extractCSV, rows); err != nil {
				return err
			}
		}
		if extractXLSX != "" {
			b, err := export.BuildXLSX(rows)
			if err != nil {
				return err
			}
			if err := os.WriteFile(extractXLSX, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", extractXLSX, err)
			}
		}
		return nil
	},
}

func writeCSVFile(path string, rows []export.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(f, rows, export.CSVOptions{BOM: true}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func init() {
	extractCmd.Flags().StringVar(&extractCSV, "csv", "", "also write the record as a one row CSV file")
	extractCmd.Flags().StringVar(&extractXLSX, "xlsx", "", "also write the record as a one row XLSX file")
	extractCmd.Flags().BoolVar(&extractNoLLM, "no-llm", false, "run the deterministic pass only")
	extractCmd.Flags().BoolVar(&extractText, "text", false, "treat the argument as already extracted plain text")

	rootCmd.AddCommand(extractCmd)
}
