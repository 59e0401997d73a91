package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
)

// OCRResult is the recognized content of one document in page order.
type OCRResult struct {
	Pages    []ocr.PageText
	Duration time.Duration
}

// Texts returns the raw page texts in page order.
func (r OCRResult) Texts() []string {
	out := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		out[i] = p.Text
	}
	return out
}

// TokenCount is the number of words recognized across all pages.
func (r OCRResult) TokenCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Tokens)
	}
	return n
}

type OCRStage struct {
	Rasterizer  ocr.Rasterizer
	Engine      ocr.Engine
	DPI         int
	PageWorkers int
	Logger      *slog.Logger
}

func NewOCRStage(r ocr.Rasterizer, e ocr.Engine, dpi, pageWorkers int, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	if pageWorkers <= 0 {
		pageWorkers = 1
	}
	return &OCRStage{Rasterizer: r, Engine: e, DPI: dpi, PageWorkers: pageWorkers, Logger: logger}
}

// Run rasterizes (PDF) or wraps (image) the document and recognizes every
// page. Pages are recognized concurrently but returned in page order. Any
// rasterizer or engine error fails the whole document.
func (s *OCRStage) Run(ctx context.Context, path, format string) (OCRResult, error) {
	start := time.Now()

	var pages *ocr.Pages
	switch format {
	case constants.PDF:
		p, err := s.Rasterizer.Rasterize(ctx, path, s.DPI)
		if err != nil {
			return OCRResult{}, common.CollaboratorFailure("rasterize "+path, err)
		}
		pages = p
	case constants.IMAGE:
		pages = ocr.SinglePage(path)
	default:
		return OCRResult{}, fmt.Errorf("%w: %s", common.ErrUnsupported, path)
	}
	defer pages.Cleanup()

	if len(pages.Images) == 0 {
		return OCRResult{}, common.CollaboratorFailure("rasterize "+path, ocr.ErrNoPages)
	}

	out := make([]ocr.PageText, len(pages.Images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.PageWorkers)
	for i, img := range pages.Images {
		i, img := i, img
		g.Go(func() error {
			pt, err := s.Engine.Recognize(gctx, img)
			if err != nil {
				return fmt.Errorf("page %d: %w", img.Number, err)
			}
			out[i] = pt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return OCRResult{}, common.CollaboratorFailure("recognize "+path, err)
	}

	res := OCRResult{Pages: out, Duration: time.Since(start)}
	common.LoggerFromContext(ctx, s.Logger).Debug("pipeline.ocr.ok",
		"path", path,
		"pages", len(out),
		"tokens", res.TokenCount(),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
