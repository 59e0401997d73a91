package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/metrics"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// Metric outcome labels.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Outcome is a document that was processed and exported.
type Outcome struct {
	Document  *entity.Document
	Artifacts export.Artifacts
}

// Failure is a document that produced no output.
type Failure struct {
	Path string
	Code string
	Err  error
}

type Report struct {
	Succeeded   []Outcome
	Failed      []Failure
	SummaryPath string
	Duration    time.Duration
}

// Documents returns the succeeded documents in processing order.
func (r *Report) Documents() []*entity.Document {
	out := make([]*entity.Document, 0, len(r.Succeeded))
	for _, o := range r.Succeeded {
		out = append(out, o.Document)
	}
	return out
}

// Batch processes documents one at a time and exports each success. A
// failed document is recorded and the batch moves on. Jobs and Metrics are
// optional.
type Batch struct {
	Processor *Processor
	Writer    *export.Writer
	Jobs      repository.ExtractJobRepository
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	Summary   bool
}

func NewBatch(proc *Processor, w *export.Writer, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{Processor: proc, Writer: w, Logger: logger}
}

// Run processes paths in order. It stops early only when ctx is done; the
// remaining documents are then reported as failed with the context error.
func (b *Batch) Run(ctx context.Context, paths []string) *Report {
	start := time.Now()
	rep := &Report{}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			for _, rest := range paths[i:] {
				rep.Failed = append(rep.Failed, Failure{Path: rest, Err: err})
			}
			b.Logger.Warn("batch.cancelled", "remaining", len(paths)-i, "err", err)
			break
		}
		out, err := b.process(ctx, path)
		if err != nil {
			rep.Failed = append(rep.Failed, Failure{Path: path, Code: common.ErrorCode(err), Err: err})
			continue
		}
		rep.Succeeded = append(rep.Succeeded, out)
	}

	if b.Summary && len(rep.Succeeded) > 0 {
		p, err := b.Writer.WriteSummary(rep.Documents())
		if err != nil {
			b.Logger.Error("batch.summary.failed", "err", err)
		} else {
			rep.SummaryPath = p
		}
	}

	rep.Duration = time.Since(start)
	b.Logger.Info("batch.done",
		"documents", len(paths),
		"succeeded", len(rep.Succeeded),
		"failed", len(rep.Failed),
		"elapsed_ms", rep.Duration.Milliseconds(),
	)
	return rep
}

// Handle processes a single document. It lets a Batch serve as the
// handler of an async.ProcessorQueue.
func (b *Batch) Handle(ctx context.Context, path string) error {
	_, err := b.process(ctx, path)
	return err
}

func (b *Batch) process(ctx context.Context, path string) (Outcome, error) {
	start := time.Now()
	job := b.startJob(ctx, path)

	doc, err := b.Processor.ProcessDocument(ctx, path)
	if err != nil {
		b.fail(ctx, job, path, 0, time.Since(start), err)
		return Outcome{}, err
	}
	if job != nil {
		doc.JobID = &job.ID
	}

	arts, err := b.Writer.WriteDocument(doc)
	if err != nil {
		b.fail(ctx, job, path, doc.Pages, time.Since(start), err)
		return Outcome{}, err
	}

	b.Metrics.ObserveDocument(StatusOK, time.Since(start), doc.Pages)
	b.Metrics.ObserveRecord(doc.Record)
	if job != nil {
		recordJSON, err := json.Marshal(doc.Record)
		if err != nil {
			b.Logger.Warn("batch.ledger.encode_failed", "job_id", job.ID, "err", err)
		}
		if err := b.Jobs.FinishSuccess(ctx, job.ID, doc.Pages, doc.Record.MeanConfidence(), recordJSON); err != nil {
			b.Logger.Warn("batch.ledger.finish_failed", "job_id", job.ID, "err", err)
		}
	}
	return Outcome{Document: doc, Artifacts: arts}, nil
}

func (b *Batch) startJob(ctx context.Context, path string) *entity.ExtractJob {
	if b.Jobs == nil {
		return nil
	}
	format := constants.MapExtToFormat(filepath.Ext(path))
	job, err := b.Jobs.Start(ctx, path, format, b.Processor.ProfileName())
	if err != nil {
		b.Logger.Warn("batch.ledger.start_failed", "path", path, "err", err)
		return nil
	}
	return job
}

func (b *Batch) fail(ctx context.Context, job *entity.ExtractJob, path string, pages int, d time.Duration, err error) {
	level := slog.LevelError
	if errors.Is(err, common.ErrUnsupported) {
		level = slog.LevelWarn
	}
	b.Logger.Log(ctx, level, "batch.document.failed",
		"path", path,
		"code", common.ErrorCode(err),
		"err", err,
	)
	b.Metrics.ObserveDocument(StatusFailed, d, pages)
	if job != nil {
		if ferr := b.Jobs.FinishFailure(ctx, job.ID, pages, err.Error()); ferr != nil {
			b.Logger.Warn("batch.ledger.finish_failed", "job_id", job.ID, "err", ferr)
		}
	}
}
