package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Engine and rasterizer names accepted by Config.
const (
	EngineTesseract = "tesseract"
	EngineGosseract = "gosseract"

	RasterizerPdftoppm = "pdftoppm"
	RasterizerPdfcpu   = "pdfcpu"

	TokenFormatTSV  = "tsv"
	TokenFormatHOCR = "hocr"
)

// ErrNoPages is returned when a PDF renders to zero images.
var ErrNoPages = errors.New("no pages rendered")

type Config struct {
	Engine     string // tesseract | gosseract
	Rasterizer string // pdftoppm | pdfcpu

	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language    string // default "eng"
	DPI         int    // rasterization DPI, default 300
	MaxPages    int    // 0 = no limit
	TessdataDir string
	TokenFormat string // tsv | hocr

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	Grayscale bool
}

// FromAppConfig maps the application OCR section onto Config.
func FromAppConfig(c common.OCRConfig) Config {
	return Config{
		Engine:      c.Engine,
		Rasterizer:  c.Rasterizer,
		Pdftoppm:    c.RasterizerPath,
		Tesseract:   c.EnginePath,
		Language:    c.Language,
		DPI:         c.RasterDPI,
		MaxPages:    c.MaxPages,
		TessdataDir: c.TessdataDir,
		TokenFormat: c.TokenFormat,
		PSM:         c.PSM,
		OEM:         c.OEM,
		Grayscale:   c.Grayscale,
	}
}

func (c Config) withDefaults() Config {
	if c.Engine == "" {
		c.Engine = EngineTesseract
	}
	if c.Rasterizer == "" {
		c.Rasterizer = RasterizerPdftoppm
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.TokenFormat == "" {
		c.TokenFormat = TokenFormatTSV
	}
	return c
}

// Token is one recognized word with its confidence in [0, 1].
type Token struct {
	Text       string
	Confidence float64
}

// PageImage is a raster image of one document page. Number is 1-based.
type PageImage struct {
	Number int
	Path   string
}

// PageText is the OCR output for one page.
type PageText struct {
	Number int
	Text   string
	Tokens []Token
}

// Pages holds rendered page images in page order. Cleanup removes any
// temporary files backing them and is safe to call more than once.
type Pages struct {
	Images  []PageImage
	cleanup func()
}

func (p *Pages) Cleanup() {
	if p.cleanup != nil {
		p.cleanup()
		p.cleanup = nil
	}
}

// Rasterizer renders a PDF into page images.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string, dpi int) (*Pages, error)
}

// Engine recognizes text and word confidences on one page image.
type Engine interface {
	Recognize(ctx context.Context, page PageImage) (PageText, error)
}

// SinglePage wraps an image file as a one-page document.
func SinglePage(path string) *Pages {
	return &Pages{Images: []PageImage{{Number: 1, Path: path}}}
}

// NewRasterizer builds the rasterizer selected by cfg.Rasterizer.
func NewRasterizer(cfg Config, runner Runner, logger *slog.Logger) (Rasterizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	switch strings.ToLower(cfg.Rasterizer) {
	case RasterizerPdftoppm:
		return NewPdftoppmRasterizer(cfg, runner, logger), nil
	case RasterizerPdfcpu:
		return NewPdfcpuRasterizer(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q", cfg.Rasterizer)
	}
}

// NewEngine builds the OCR engine selected by cfg.Engine, wrapped with
// grayscale preprocessing when enabled.
func NewEngine(cfg Config, runner Runner, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	var eng Engine
	switch strings.ToLower(cfg.Engine) {
	case EngineTesseract:
		eng = NewTesseractEngine(cfg, runner, logger)
	case EngineGosseract:
		g, err := NewGosseractEngine(cfg, logger)
		if err != nil {
			return nil, err
		}
		eng = g
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
	if cfg.Grayscale {
		eng = NewGrayscaleEngine(eng, logger)
	}
	return eng, nil
}

// scaleConfidence maps an engine's 0..100 word confidence into [0, 1].
func scaleConfidence(raw float64) float64 {
	c := raw / constants.EngineConfidenceScale
	if c < constants.MinConfidence {
		return constants.MinConfidence
	}
	if c > constants.MaxConfidence {
		return constants.MaxConfidence
	}
	return c
}

func removeTempDir(logger *slog.Logger, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("failed to remove temp dir", "path", dir, "error", err)
	}
}
