package ingest

import (
	"context"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/access-form-extractor/constants"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	SubmissionID uuid.UUID
	Deduplicated bool
	HashHex      string
	Status       constants.SubmissionStatus
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the CLI and server depend on.
type Ingestor interface {
	// IngestPath processes and stores a single file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
