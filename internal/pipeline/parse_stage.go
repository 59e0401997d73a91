package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

// ParseStage turns recognized pages into a record using one compiled profile.
type ParseStage struct {
	Profile *extract.CompiledProfile
	Logger  *slog.Logger
}

func NewParseStage(cp *extract.CompiledProfile, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{Profile: cp, Logger: logger}
}

// BuildIndex loads every token into a fresh index in page order, then
// token order, so later pages win on duplicate words.
func (s *ParseStage) BuildIndex(res OCRResult) *extract.TokenIndex {
	norm := s.Profile.Normalizer()
	idx := extract.NewTokenIndex()
	for _, p := range res.Pages {
		for _, tok := range p.Tokens {
			idx.Insert(norm.Key(tok.Text), tok.Confidence)
		}
	}
	return idx
}

// Run returns the normalized document text and its record. Field misses
// yield empty values; only non-numeric derivation errors are returned.
func (s *ParseStage) Run(res OCRResult) (string, *extract.Record, error) {
	idx := s.BuildIndex(res)
	text := s.Profile.Normalizer().Join(res.Texts())
	rec, err := s.Profile.Parse(idx, text)
	if err != nil {
		return text, nil, err
	}
	s.Logger.Debug("pipeline.parse.ok",
		"profile", s.Profile.Name(),
		"indexed_tokens", idx.Len(),
		"matched", rec.MatchedCount(),
		"fields", rec.Len(),
	)
	return text, rec, nil
}
