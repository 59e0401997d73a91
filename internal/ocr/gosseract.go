//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"
)

// GosseractEngine recognizes pages in-process through libtesseract.
type GosseractEngine struct {
	cfg    Config
	logger *slog.Logger
}

func NewGosseractEngine(cfg Config, logger *slog.Logger) (*GosseractEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &GosseractEngine{cfg: cfg.withDefaults(), logger: logger}, nil
}

func (e *GosseractEngine) Recognize(ctx context.Context, page PageImage) (PageText, error) {
	if err := ctx.Err(); err != nil {
		return PageText{}, err
	}
	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(e.cfg.Language); err != nil {
		return PageText{}, fmt.Errorf("gosseract language: %w", err)
	}
	if e.cfg.TessdataDir != "" {
		if err := client.SetTessdataPrefix(e.cfg.TessdataDir); err != nil {
			return PageText{}, fmt.Errorf("gosseract tessdata: %w", err)
		}
	}
	if e.cfg.PSM > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
			return PageText{}, fmt.Errorf("gosseract psm: %w", err)
		}
	}
	if err := client.SetImage(page.Path); err != nil {
		return PageText{}, fmt.Errorf("gosseract page %d: %w", page.Number, err)
	}

	text, err := client.Text()
	if err != nil {
		return PageText{}, fmt.Errorf("gosseract page %d: %w", page.Number, err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return PageText{}, fmt.Errorf("gosseract page %d words: %w", page.Number, err)
	}

	tokens := make([]Token, 0, len(boxes))
	for _, b := range boxes {
		if b.Word == "" || b.Confidence < 0 {
			continue
		}
		tokens = append(tokens, Token{Text: b.Word, Confidence: scaleConfidence(b.Confidence)})
	}
	e.logger.Debug("page recognized", "engine", EngineGosseract, "page", page.Number, "tokens", len(tokens))
	return PageText{Number: page.Number, Text: text, Tokens: tokens}, nil
}
