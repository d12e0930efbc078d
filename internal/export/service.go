package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/repository"
	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

// Service exports stored submissions.
type Service struct {
	repo   repository.SubmissionRepository
	logger *slog.Logger
}

func NewService(repo repository.SubmissionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Export writes the submissions matching filter to w in the given format and
// returns the number of rows written. Submissions without a record (failed
// ones) are skipped.
func (s *Service) Export(ctx context.Context, format string, w io.Writer, filter repository.ListFilter) (int, error) {
	start := time.Now()
	if format != FormatCSV && format != FormatXLSX {
		return 0, fmt.Errorf("%w: unknown export format %q", common.ErrInvalidInput, format)
	}

	subs, err := s.repo.List(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("list submissions: %w", err)
	}
	rows := make([]Row, 0, len(subs))
	for _, sub := range subs {
		if len(sub.Record) == 0 {
			continue
		}
		var rec schema.Record
		if err := json.Unmarshal(sub.Record, &rec); err != nil {
			s.logger.Warn("export.record.invalid", "id", sub.ID, "error", err)
			continue
		}
		rows = append(rows, Row{Record: rec, Source: sub.SourcePath, Status: string(sub.Status), CreatedAt: sub.CreatedAt})
	}

	switch format {
	case FormatCSV:
		err = WriteCSV(w, rows, CSVOptions{BOM: true})
	case FormatXLSX:
		var b []byte
		if b, err = BuildXLSX(rows); err == nil {
			_, err = w.Write(b)
		}
	}
	if err != nil {
		return 0, err
	}

	s.logger.Info("export.ok",
		"format", format,
		"rows", len(rows),
		"skipped", len(subs)-len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return len(rows), nil
}
