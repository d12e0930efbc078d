package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/access-form-extractor/constants"
	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/pipeline"
	"github.com/joseph-ayodele/access-form-extractor/internal/repository"
)

// FSIngestor reads forms from the local filesystem, skips contents already
// stored and saves every result.
type FSIngestor struct {
	Proc      pipeline.Runner
	Repo      repository.SubmissionRepository
	Logger    *slog.Logger
	Workers   int           // directory ingest concurrency; default 4
	QueueSize int           // pending jobs buffered ahead of the workers
	Timeout   time.Duration // per document; default 3m
	Force     bool          // reprocess contents already stored
}

func NewFSIngestor(proc pipeline.Runner, repo repository.SubmissionRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Proc: proc, Repo: repo, Logger: logger, Workers: 4, Timeout: 3 * time.Minute}
}

// prepare resolves path, checks its extension and looks for an earlier
// successful submission of identical content.
func (i *FSIngestor) prepare(ctx context.Context, path string) (pipeline.Job, *IngestionResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return pipeline.Job{}, nil, fmt.Errorf("abs path: %w", err)
	}
	if !AllowedExt(filepath.Ext(abs)) {
		return pipeline.Job{}, nil, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, filepath.Ext(abs))
	}
	hash, err := HashFile(abs)
	if err != nil {
		return pipeline.Job{}, nil, fmt.Errorf("%w: %w", common.ErrDocument, err)
	}
	job := pipeline.Job{Path: abs, Hash: hash, SubmittedAt: time.Now().UTC(), TraceID: common.RequestIDFromContext(ctx)}

	if !i.Force {
		prev, err := i.Repo.FindByHash(ctx, hash)
		switch {
		case err == nil && prev.Status == constants.SubmissionStatusFailed:
			i.Logger.Info("ingest.retry_failed", "path", abs, "submission_id", prev.ID)
		case err == nil:
			i.Logger.Info("ingest.dedup", "path", abs, "submission_id", prev.ID)
			return job, &IngestionResult{
				SourcePath:   abs,
				SubmissionID: prev.ID,
				Deduplicated: true,
				HashHex:      hash,
				Status:       prev.Status,
			}, nil
		case !errors.Is(err, common.ErrNotFound):
			return job, nil, err
		}
	}
	return job, nil, nil
}

// IngestPath processes one file synchronously and stores the result.
func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	job, dup, err := i.prepare(ctx, path)
	if err != nil {
		return IngestionResult{SourcePath: path, Err: err.Error()}, err
	}
	if dup != nil {
		return *dup, nil
	}

	var res IngestionResult
	sink := &StoreSink{Repo: i.Repo, Logger: i.Logger, OnStored: func(r IngestionResult) { res = r }}
	runCtx, cancel := context.WithTimeout(ctx, i.timeout())
	defer cancel()
	out, runErr := i.Proc.Process(runCtx, job.Path)
	sink.Handle(runCtx, job, out, runErr)

	if runErr != nil {
		return res, runErr
	}
	if res.Err != "" {
		return res, errors.New(res.Err)
	}
	return res, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and runs
// every new matching file through a worker queue. Results are sorted by path.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, fmt.Errorf("%w: root path is required", common.ErrInvalidInput)
	}

	var (
		mu      sync.Mutex
		results []IngestionResult
		stats   DirStats
	)
	record := func(r IngestionResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
		switch {
		case r.Err != "":
			stats.Failed++
		case r.Deduplicated:
			stats.Succeeded++
			stats.Deduplicated++
		default:
			stats.Succeeded++
		}
	}

	sink := &StoreSink{Repo: i.Repo, Logger: i.Logger, OnStored: record}
	q := pipeline.NewQueue(i.Proc, sink, i.Logger,
		pipeline.WithWorkers(i.Workers),
		pipeline.WithQueueSize(i.QueueSize),
		pipeline.WithProcessTimeout(i.timeout()),
		pipeline.WithBaseContext(ctx),
	)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.Scanned++
		if err != nil {
			record(IngestionResult{SourcePath: path, Err: err.Error()})
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		job, dup, err := i.prepare(ctx, path)
		switch {
		case err != nil:
			record(IngestionResult{SourcePath: path, Err: err.Error()})
		case dup != nil:
			record(*dup)
		default:
			if err := q.Enqueue(ctx, job); err != nil {
				record(IngestionResult{SourcePath: job.Path, HashHex: job.Hash, Err: err.Error()})
			}
		}
		return nil
	})
	q.Shutdown(context.WithoutCancel(ctx))

	mu.Lock()
	defer mu.Unlock()
	sort.Slice(results, func(a, b int) bool { return results[a].SourcePath < results[b].SourcePath })
	i.Logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	if walkErr != nil {
		return results, stats, fmt.Errorf("walk: %w", walkErr)
	}
	return results, stats, nil
}

func (i *FSIngestor) timeout() time.Duration {
	if i.Timeout <= 0 {
		return 3 * time.Minute
	}
	return i.Timeout
}
