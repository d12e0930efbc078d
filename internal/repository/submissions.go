package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/access-form-extractor/constants"
	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/entity"
)

type SubmissionRepository interface {
	Save(ctx context.Context, s *entity.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Submission, error)
	FindByHash(ctx context.Context, hash string) (*entity.Submission, error)
	List(ctx context.Context, filter ListFilter) ([]*entity.Submission, error)
}

// ListFilter narrows List. Zero values mean no constraint.
type ListFilter struct {
	Status constants.SubmissionStatus
	Since  time.Time
	Limit  int
}

type submissionRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewSubmissionRepository(db *DB, logger *slog.Logger) SubmissionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &submissionRepo{db: db, logger: logger}
}

const submissionColumns = `id, source_path, filename, content_hash, status, method, pages, record,
	missing_fields, inferred_fields, error_message, resolver_attempts, duration_ms, created_at`

// Save inserts s, assigning an ID and creation time when unset.
func (r *submissionRepo) Save(ctx context.Context, s *entity.Submission) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	missing, err := json.Marshal(nonNil(s.MissingFields))
	if err != nil {
		return err
	}
	inferred, err := json.Marshal(nonNil(s.InferredFields))
	if err != nil {
		return err
	}
	var record any
	if len(s.Record) > 0 {
		record = string(s.Record)
	}

	q := r.db.rebind(`INSERT INTO submissions (` + submissionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.db.SQL.ExecContext(ctx, q,
		s.ID.String(), s.SourcePath, s.Filename, s.ContentHash, string(s.Status), s.Method, s.Pages, record,
		string(missing), string(inferred), s.ErrorMessage, s.ResolverAttempts, s.DurationMS, s.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to save submission", "id", s.ID, "source_path", s.SourcePath, "error", err)
		return fmt.Errorf("%w: save submission: %w", common.ErrDatabase, err)
	}
	return nil
}

func (r *submissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Submission, error) {
	q := r.db.rebind(`SELECT ` + submissionColumns + ` FROM submissions WHERE id = ?`)
	return r.one(ctx, q, id.String())
}

// FindByHash returns the most recent submission of a file content.
func (r *submissionRepo) FindByHash(ctx context.Context, hash string) (*entity.Submission, error) {
	if hash == "" {
		return nil, common.ErrNotFound
	}
	q := r.db.rebind(`SELECT ` + submissionColumns + ` FROM submissions
		WHERE content_hash = ? ORDER BY created_at DESC LIMIT 1`)
	return r.one(ctx, q, hash)
}

// List returns submissions oldest first.
func (r *submissionRepo) List(ctx context.Context, f ListFilter) ([]*entity.Submission, error) {
	q := `SELECT ` + submissionColumns + ` FROM submissions WHERE 1=1`
	var args []any
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if !f.Since.IsZero() {
		q += ` AND created_at >= ?`
		args = append(args, f.Since.UTC())
	}
	q += ` ORDER BY created_at ASC, id ASC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		r.logger.Error("failed to list submissions", "error", err)
		return nil, fmt.Errorf("%w: list submissions: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list submissions: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *submissionRepo) one(ctx context.Context, q string, args ...any) (*entity.Submission, error) {
	s, err := scanSubmission(r.db.SQL.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*entity.Submission, error) {
	var (
		s                 entity.Submission
		id, status        string
		record            sql.NullString
		missing, inferred string
		errMsg            sql.NullString
		created           timestamp
	)
	err := row.Scan(&id, &s.SourcePath, &s.Filename, &s.ContentHash, &status, &s.Method, &s.Pages, &record,
		&missing, &inferred, &errMsg, &s.ResolverAttempts, &s.DurationMS, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan submission: %w", common.ErrDatabase, err)
	}
	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: submission id %q: %w", common.ErrDatabase, id, err)
	}
	s.Status = constants.SubmissionStatus(status)
	if record.Valid {
		s.Record = json.RawMessage(record.String)
	}
	if err := json.Unmarshal([]byte(missing), &s.MissingFields); err != nil {
		return nil, fmt.Errorf("%w: missing_fields: %w", common.ErrDatabase, err)
	}
	if err := json.Unmarshal([]byte(inferred), &s.InferredFields); err != nil {
		return nil, fmt.Errorf("%w: inferred_fields: %w", common.ErrDatabase, err)
	}
	if errMsg.Valid {
		s.ErrorMessage = &errMsg.String
	}
	s.CreatedAt = time.Time(created)
	return &s, nil
}

// timestamp scans the time representations of both drivers.
type timestamp time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = timestamp(v)
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		*t = timestamp(time.Time{})
		return nil
	}
	return fmt.Errorf("unsupported time value %T", src)
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			*t = timestamp(v)
			return nil
		}
	}
	return fmt.Errorf("unparseable time %q", s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
