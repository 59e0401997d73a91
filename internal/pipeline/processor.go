package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

// Processor coordinates OCR then rule-based field parsing for one document.
// It keeps no state between documents.
type Processor struct {
	Logger *slog.Logger
	OCR    *OCRStage
	Parse  *ParseStage
}

func NewProcessor(logger *slog.Logger, ocr *OCRStage, parse *ParseStage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, OCR: ocr, Parse: parse}
}

// ProfileName is the name of the compiled profile records are built with.
func (p *Processor) ProfileName() string { return p.Parse.Profile.Name() }

// FieldNames lists the record fields in output order.
func (p *Processor) FieldNames() []string { return p.Parse.Profile.FieldNames() }

// ProcessDocument runs OCR on path and parses the result into a record.
// Unsupported extensions and collaborator failures are returned as errors
// and no record is produced.
func (p *Processor) ProcessDocument(ctx context.Context, path string) (*entity.Document, error) {
	start := time.Now()
	doc := &entity.Document{
		ID:      uuid.New(),
		Source:  path,
		Name:    DocumentName(path),
		Format:  constants.MapExtToFormat(filepath.Ext(path)),
		Profile: p.ProfileName(),
	}
	log := p.Logger.With("document_id", doc.ID, "path", path)
	ctx = common.WithLogger(ctx, log)

	if doc.Format == "" {
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupported, filepath.Ext(path))
	}

	res, err := p.OCR.Run(ctx, path, doc.Format)
	if err != nil {
		log.Error("processor.ocr.failed", "err", err)
		return nil, err
	}
	doc.Pages = len(res.Pages)
	doc.Text = strings.Join(res.Texts(), "\n")
	log.Info("processor.ocr.ok",
		"format", doc.Format,
		"pages", doc.Pages,
		"tokens", res.TokenCount(),
		"elapsed_ms", res.Duration.Milliseconds(),
	)

	_, rec, err := p.Parse.Run(res)
	if err != nil {
		log.Error("processor.parse.failed", "err", err)
		return nil, fmt.Errorf("parse fields: %w", err)
	}
	doc.Record = rec
	doc.Duration = time.Since(start)

	log.Info("processor.parse.ok",
		"profile", doc.Profile,
		"matched", rec.MatchedCount(),
		"fields", rec.Len(),
		"mean_confidence", rec.MeanConfidence(),
	)
	return doc, nil
}

// DocumentName is the output base name: the file name without extension.
func DocumentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NewFromProfile wires both stages around one compiled profile.
func NewFromProfile(cp *extract.CompiledProfile, ocrStage *OCRStage, logger *slog.Logger) *Processor {
	return NewProcessor(logger, ocrStage, NewParseStage(cp, logger))
}
