package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/access-form-extractor/constants"
	"github.com/joseph-ayodele/access-form-extractor/internal/entity"
	"github.com/joseph-ayodele/access-form-extractor/internal/pipeline"
	"github.com/joseph-ayodele/access-form-extractor/internal/repository"
)

// NewSubmission turns a pipeline result into a storable submission. A failed
// run is stored with status FAILED and no record.
func NewSubmission(job pipeline.Job, out pipeline.Outcome, runErr error) (*entity.Submission, error) {
	s := &entity.Submission{
		SourcePath:       job.Path,
		Filename:         filepath.Base(job.Path),
		ContentHash:      job.Hash,
		Method:           out.Document.Method,
		Pages:            out.Document.Pages,
		MissingFields:    out.Missing,
		InferredFields:   out.InferredFields(),
		ResolverAttempts: out.Resolver.Attempts,
		DurationMS:       out.Duration.Milliseconds(),
	}
	if runErr != nil {
		msg := runErr.Error()
		s.Status = constants.SubmissionStatusFailed
		s.ErrorMessage = &msg
		return s, nil
	}

	data, err := json.Marshal(out.Record)
	if err != nil {
		return nil, err
	}
	s.Record = data
	s.Status = constants.SubmissionStatusExtracted
	if len(s.InferredFields) > 0 {
		s.Status = constants.SubmissionStatusInferred
	}
	if out.Resolver.Err != nil {
		msg := out.Resolver.Err.Error()
		s.ErrorMessage = &msg
	}
	return s, nil
}

// StoreSink saves every queue result and reports it to OnStored.
type StoreSink struct {
	Repo     repository.SubmissionRepository
	Logger   *slog.Logger
	OnStored func(IngestionResult)
}

func (s *StoreSink) Handle(ctx context.Context, job pipeline.Job, out pipeline.Outcome, runErr error) {
	res := IngestionResult{SourcePath: job.Path, HashHex: job.Hash}
	if runErr != nil {
		res.Err = runErr.Error()
	}

	sub, err := NewSubmission(job, out, runErr)
	if err == nil {
		// the job context may have expired with the run
		err = s.Repo.Save(context.WithoutCancel(ctx), sub)
	}
	if err != nil {
		s.logger().Error("ingest.store.failed", "path", job.Path, "error", err)
		res.Err = err.Error()
	} else {
		res.SubmissionID = sub.ID
		res.Status = sub.Status
	}
	if s.OnStored != nil {
		s.OnStored(res)
	}
}

func (s *StoreSink) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
