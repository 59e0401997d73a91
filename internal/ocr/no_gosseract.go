//go:build !gosseract

package ocr

import (
	"context"
	"errors"
	"log/slog"
)

// ErrGosseractUnavailable is returned when the binary was built without
// the gosseract tag.
var ErrGosseractUnavailable = errors.New("gosseract engine not compiled in (build with -tags gosseract)")

type GosseractEngine struct{}

func NewGosseractEngine(Config, *slog.Logger) (*GosseractEngine, error) {
	return nil, ErrGosseractUnavailable
}

func (*GosseractEngine) Recognize(context.Context, PageImage) (PageText, error) {
	return PageText{}, ErrGosseractUnavailable
}
