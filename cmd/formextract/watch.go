package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/access-form-extractor/internal/ingest"
)

var (
	watchDirs          []string
	watchInitialScan   bool
	watchIncludeHidden bool
	watchNoLLM         bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch directories and ingest forms as they arrive",
	Long: `Watch one or more directories recursively and extract every PDF form
created or written in them. Runs until interrupted.

Examples:
  formextract watch --dir ./inbox
  formextract watch --dir ./inbox --dir ./scans --initial-scan`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ing, closeFn, err := newIngestor(cmd, false, watchNoLLM)
		if err != nil {
			return err
		}
		defer closeFn()

		err = ing.Watch(cmd.Context(), ingest.WatchConfig{
			Roots:       watchDirs,
			InitialScan: watchInitialScan,
			Debounce:    cfg.Batch.Debounce,
			SkipHidden:  !watchIncludeHidden,
			Logger:      logger,
		})
		if errors.Is(err, context.Canceled) {
			logger.Info("watch.stopped")
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchDirs, "dir", nil, "directory to watch (repeatable, required)")
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", false, "ingest files already present at startup")
	watchCmd.Flags().BoolVar(&watchIncludeHidden, "include-hidden", false, "also ingest hidden files and directories")
	watchCmd.Flags().BoolVar(&watchNoLLM, "no-llm", false, "run the deterministic pass only")
	_ = watchCmd.MarkFlagRequired("dir")

	rootCmd.AddCommand(watchCmd)
}
