package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PdftoppmRasterizer renders pages with poppler's pdftoppm.
type PdftoppmRasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPdftoppmRasterizer(cfg Config, runner Runner, logger *slog.Logger) *PdftoppmRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PdftoppmRasterizer{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

func (r *PdftoppmRasterizer) Rasterize(ctx context.Context, pdfPath string, dpi int) (*Pages, error) {
	if dpi <= 0 {
		dpi = r.cfg.DPI
	}
	tmpDir, err := os.MkdirTemp("", "ix-pp-*")
	if err != nil {
		return nil, err
	}
	pages := &Pages{cleanup: func() { removeTempDir(r.logger, tmpDir) }}

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(dpi), "-png"}
	if r.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(r.cfg.MaxPages))
	}
	args = append(args, pdfPath, prefix)

	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	if _, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, args...); err != nil {
		pages.Cleanup()
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	// collect generated pngs (page-1.png, page-2.png or page-01.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	images := make([]PageImage, 0, len(matches))
	for _, m := range matches {
		n, err := pageNumberFromSuffix(m)
		if err != nil {
			r.logger.Warn("skipping unexpected rasterizer output", "path", m)
			continue
		}
		images = append(images, PageImage{Number: n, Path: m})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Number < images[j].Number })
	if r.cfg.MaxPages > 0 && len(images) > r.cfg.MaxPages {
		images = images[:r.cfg.MaxPages]
	}
	if len(images) == 0 {
		pages.Cleanup()
		return nil, fmt.Errorf("pdftoppm %s: %w", pdfPath, ErrNoPages)
	}

	pages.Images = images
	r.logger.Debug("pdf rasterized", "path", pdfPath, "pages", len(images), "dpi", dpi)
	return pages, nil
}

// pageNumberFromSuffix parses N from ".../page-N.png".
func pageNumberFromSuffix(path string) (int, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	i := strings.LastIndex(base, "-")
	if i < 0 {
		return 0, fmt.Errorf("no page suffix in %q", base)
	}
	return strconv.Atoi(base[i+1:])
}
