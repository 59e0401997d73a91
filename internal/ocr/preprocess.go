package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// minPreprocessWidth is the page width below which images are upscaled 2x
// before recognition.
const minPreprocessWidth = 1200

// GrayscaleEngine converts each page to grayscale (and upscales narrow
// scans) before handing it to the wrapped engine.
type GrayscaleEngine struct {
	next   Engine
	logger *slog.Logger
}

func NewGrayscaleEngine(next Engine, logger *slog.Logger) *GrayscaleEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &GrayscaleEngine{next: next, logger: logger}
}

func (g *GrayscaleEngine) Recognize(ctx context.Context, page PageImage) (PageText, error) {
	tmpDir, err := os.MkdirTemp("", "ix-gray-*")
	if err != nil {
		return PageText{}, err
	}
	defer removeTempDir(g.logger, tmpDir)

	out := filepath.Join(tmpDir, fmt.Sprintf("page-%d.png", page.Number))
	if err := preprocessImage(page.Path, out); err != nil {
		return PageText{}, fmt.Errorf("preprocess page %d: %w", page.Number, err)
	}
	return g.next.Recognize(ctx, PageImage{Number: page.Number, Path: out})
}

func preprocessImage(in, out string) error {
	img, err := imaging.Open(in, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	gray := imaging.Grayscale(img)
	if w := gray.Bounds().Dx(); w > 0 && w < minPreprocessWidth {
		gray = imaging.Resize(gray, w*2, 0, imaging.Lanczos)
	}
	return imaging.Save(gray, out)
}
