package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/access-form-extractor/internal/ingest"
)

var (
	batchDir           string
	batchForce         bool
	batchIncludeHidden bool
	batchNoLLM         bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract and store every form under a directory",
	Long: `Walk a directory, extract every PDF form and store the results.

Files whose content was already stored successfully are skipped unless
--force is given. A JSON summary is printed on stdout.

Examples:
  formextract batch --dir ./demandes
  formextract batch --dir ./demandes --force --no-llm`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ing, closeFn, err := newIngestor(cmd, batchForce, batchNoLLM)
		if err != nil {
			return err
		}
		defer closeFn()

		results, stats, err := ing.IngestDirectory(ctx, batchDir, !batchIncludeHidden)
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(map[string]any{"stats": stats, "results": results}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return err
	},
}

// newIngestor opens the store and builds a filesystem ingestor. The
// returned func closes the store.
func newIngestor(cmd *cobra.Command, force, noLLM bool) (*ingest.FSIngestor, func(), error) {
	proc, err := newProcessor(cfg, logger, noLLM)
	if err != nil {
		return nil, nil, err
	}
	db, err := openStore(cmd.Context(), cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	ing := ingest.NewFSIngestor(proc, repositoryFor(db), logger)
	ing.Workers = cfg.Batch.Workers
	ing.QueueSize = cfg.Batch.QueueSize
	ing.Timeout = cfg.Batch.ProcessTimeout
	ing.Force = force
	return ing, func() { db.Close(logger) }, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "directory to ingest (required)")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "reprocess files already stored")
	batchCmd.Flags().BoolVar(&batchIncludeHidden, "include-hidden", false, "also ingest hidden files and directories")
	batchCmd.Flags().BoolVar(&batchNoLLM, "no-llm", false, "run the deterministic pass only")
	_ = batchCmd.MarkFlagRequired("dir")

	rootCmd.AddCommand(batchCmd)
}
