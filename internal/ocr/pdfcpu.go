package ocr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PdfcpuRasterizer pulls the embedded page scans out of image-only PDFs
// with pdfcpu. It needs no external binaries; the dpi argument is ignored
// because the embedded resolution is used as is.
type PdfcpuRasterizer struct {
	cfg    Config
	logger *slog.Logger
}

func NewPdfcpuRasterizer(cfg Config, logger *slog.Logger) *PdfcpuRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PdfcpuRasterizer{cfg: cfg.withDefaults(), logger: logger}
}

func (r *PdfcpuRasterizer) Rasterize(ctx context.Context, pdfPath string, _ int) (*Pages, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	count, err := api.PageCountFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu page count: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("pdfcpu %s: %w", pdfPath, ErrNoPages)
	}

	tmpDir, err := os.MkdirTemp("", "ix-pdfcpu-*")
	if err != nil {
		return nil, err
	}
	pages := &Pages{cleanup: func() { removeTempDir(r.logger, tmpDir) }}

	var selected []string
	if r.cfg.MaxPages > 0 && count > r.cfg.MaxPages {
		selected = []string{fmt.Sprintf("1-%d", r.cfg.MaxPages)}
	}
	if err := api.ExtractImagesFile(pdfPath, tmpDir, selected, nil); err != nil {
		pages.Cleanup()
		return nil, fmt.Errorf("pdfcpu extract images: %w", err)
	}

	images, err := largestImagePerPage(tmpDir, strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath)))
	if err != nil {
		pages.Cleanup()
		return nil, err
	}
	if len(images) == 0 {
		pages.Cleanup()
		return nil, fmt.Errorf("pdfcpu %s: %w", pdfPath, ErrNoPages)
	}
	if len(images) < count && (r.cfg.MaxPages == 0 || len(images) < r.cfg.MaxPages) {
		r.logger.Warn("some pages carry no embedded image", "path", pdfPath, "pages", count, "images", len(images))
	}

	pages.Images = images
	return pages, nil
}

// largestImagePerPage groups extracted files by page and keeps the biggest
// file of each page, which for scanned PDFs is the page scan itself.
func largestImagePerPage(dir, stem string) ([]PageImage, error) {
	best := map[int]PageImage{}
	size := map[int]int64{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		n, err := extractedPageNumber(d.Name(), stem)
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > size[n] {
			size[n] = info.Size()
			best[n] = PageImage{Number: n, Path: path}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]PageImage, 0, len(best))
	for _, img := range best {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// extractedPageNumber parses the page from pdfcpu output names:
// "<stem>_<page>_<image>.<ext>" or "page_<page>_image_<idx>.<ext>".
func extractedPageNumber(name, stem string) (int, error) {
	rest := strings.TrimSuffix(name, filepath.Ext(name))
	switch {
	case stem != "" && strings.HasPrefix(rest, stem+"_"):
		rest = strings.TrimPrefix(rest, stem+"_")
	case strings.HasPrefix(rest, "page_"):
		rest = strings.TrimPrefix(rest, "page_")
	default:
		return 0, errors.New("not a page image")
	}
	head, _, _ := strings.Cut(rest, "_")
	n, err := strconv.Atoi(head)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid page number")
	}
	return n, nil
}
