package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const extractJobTable = "extract_job"

var extractJobColumns = []string{
	"id", "source_path", "format", "profile", "status", "pages",
	"started_at", "finished_at", "error_message", "mean_confidence", "record_json",
}

// ErrJobNotFound is returned by Get for an unknown job id.
var ErrJobNotFound = errors.New("extract job not found")

type ExtractJobRepository interface {
	Start(ctx context.Context, sourcePath, format, profile string) (*entity.ExtractJob, error)
	FinishSuccess(ctx context.Context, jobID uuid.UUID, pages int, meanConfidence float64, recordJSON []byte) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, pages int, message string) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log}
}

func (r *extractJobRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.dialect)
}

func (r *extractJobRepo) Start(ctx context.Context, sourcePath, format, profile string) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		Format:     format,
		Profile:    profile,
		Status:     string(constants.JobStatusRunning),
		StartedAt:  time.Now().UTC(),
	}
	query, args := r.builder().Insert(extractJobTable).
		Columns("id", "source_path", "format", "profile", "status", "pages", "started_at").
		Values(job.ID.String(), job.SourcePath, job.Format, job.Profile, job.Status, 0, formatTime(job.StartedAt)).
		Query()
	if err := r.db.drv.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("extract_job start failed", "path", sourcePath, "err", err)
		return nil, err
	}
	r.log.Info("extract_job started", "job_id", job.ID, "path", sourcePath, "format", format)
	return job, nil
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, pages int, meanConfidence float64, recordJSON []byte) error {
	query, args := r.builder().Update(extractJobTable).
		Set("status", string(constants.JobStatusOK)).
		Set("pages", pages).
		Set("finished_at", formatTime(time.Now().UTC())).
		Set("mean_confidence", meanConfidence).
		Set("record_json", string(recordJSON)).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	if err := r.exec(ctx, jobID, query, args); err != nil {
		r.log.Error("extract_job finish(OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished (OK)", "job_id", jobID, "pages", pages)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, pages int, message string) error {
	query, args := r.builder().Update(extractJobTable).
		Set("status", string(constants.JobStatusFailed)).
		Set("pages", pages).
		Set("finished_at", formatTime(time.Now().UTC())).
		Set("error_message", message).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	if err := r.exec(ctx, jobID, query, args); err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) exec(ctx context.Context, jobID uuid.UUID, query string, args []any) error {
	var res sql.Result
	if err := r.db.drv.Exec(ctx, query, args, &res); err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return nil
}

func (r *extractJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	query, args := r.builder().Select(extractJobColumns...).
		From(entsql.Table(extractJobTable)).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	jobs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return jobs[0], nil
}

func (r *extractJobRepo) ListRecent(ctx context.Context, limit int) ([]*entity.ExtractJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args := r.builder().Select(extractJobColumns...).
		From(entsql.Table(extractJobTable)).
		OrderBy(entsql.Desc("started_at")).
		Limit(limit).
		Query()
	return r.query(ctx, query, args)
}

func (r *extractJobRepo) query(ctx context.Context, query string, args []any) ([]*entity.ExtractJob, error) {
	rows, err := r.db.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.ExtractJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func scanJob(rows *sql.Rows) (*entity.ExtractJob, error) {
	var (
		job                          entity.ExtractJob
		id, started                  string
		finished, errMsg, recordJSON sql.NullString
		meanConfidence               sql.NullFloat64
	)
	if err := rows.Scan(&id, &job.SourcePath, &job.Format, &job.Profile, &job.Status, &job.Pages,
		&started, &finished, &errMsg, &meanConfidence, &recordJSON); err != nil {
		return nil, err
	}
	var err error
	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("extract_job id %q: %w", id, err)
	}
	if job.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return nil, err
		}
		job.FinishedAt = &t
	}
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	if meanConfidence.Valid {
		job.MeanConfidence = &meanConfidence.Float64
	}
	if recordJSON.Valid && recordJSON.String != "" {
		job.RecordJSON = []byte(recordJSON.String)
	}
	return &job, nil
}

// Timestamps are stored as fixed-width UTC text so both dialects order them the same way.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
