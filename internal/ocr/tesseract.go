package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TesseractEngine runs the tesseract CLI once per page, asking for plain
// text and a word-level token file (TSV or hOCR) in the same invocation.
type TesseractEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(cfg Config, runner Runner, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

func (e *TesseractEngine) Recognize(ctx context.Context, page PageImage) (PageText, error) {
	tmpDir, err := os.MkdirTemp("", "ix-tess-*")
	if err != nil {
		return PageText{}, err
	}
	defer removeTempDir(e.logger, tmpDir)

	base := filepath.Join(tmpDir, "out")
	// tesseract <img> <tmp/out> -l <lang> [opts] txt tsv
	if _, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.args(page.Path, base)...); err != nil {
		return PageText{}, fmt.Errorf("tesseract page %d: %w: %s", page.Number, err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	txt, err := os.ReadFile(base + ".txt")
	if err != nil {
		return PageText{}, fmt.Errorf("tesseract page %d: read text: %w", page.Number, err)
	}

	var tokens []Token
	switch e.cfg.TokenFormat {
	case TokenFormatHOCR:
		raw, err := os.ReadFile(base + ".hocr")
		if err != nil {
			return PageText{}, fmt.Errorf("tesseract page %d: read hocr: %w", page.Number, err)
		}
		tokens, err = ParseHOCR(raw)
		if err != nil {
			return PageText{}, fmt.Errorf("tesseract page %d: %w", page.Number, err)
		}
	default:
		raw, err := os.ReadFile(base + ".tsv")
		if err != nil {
			return PageText{}, fmt.Errorf("tesseract page %d: read tsv: %w", page.Number, err)
		}
		tokens = ParseTSV(raw)
	}

	e.logger.Debug("page recognized", "page", page.Number, "chars", len(txt), "tokens", len(tokens))
	return PageText{Number: page.Number, Text: string(txt), Tokens: tokens}, nil
}

func (e *TesseractEngine) args(image, base string) []string {
	args := []string{image, base, "-l", e.cfg.Language}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	format := TokenFormatTSV
	if e.cfg.TokenFormat == TokenFormatHOCR {
		format = TokenFormatHOCR
	}
	return append(args, "txt", format)
}
