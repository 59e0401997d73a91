package extract

import "strings"

// TokenIndex maps a recognized word to the confidence of its most recent
// occurrence. Repeated words overwrite earlier entries; the index never keeps
// a maximum or an average. It is scoped to one document and not safe for
// concurrent mutation.
type TokenIndex struct {
	m map[string]float64
}

func NewTokenIndex() *TokenIndex {
	return &TokenIndex{m: make(map[string]float64)}
}

// Insert records confidence for text. Blank text and negative confidence
// are ignored.
func (ix *TokenIndex) Insert(text string, confidence float64) {
	if strings.TrimSpace(text) == "" || confidence < 0 {
		return
	}
	ix.m[text] = confidence
}

// Lookup returns the stored confidence and whether text is present.
func (ix *TokenIndex) Lookup(text string) (float64, bool) {
	c, ok := ix.m[text]
	return c, ok
}

// Confidence returns the stored confidence, or 0 when absent.
func (ix *TokenIndex) Confidence(text string) float64 {
	return ix.m[text]
}

func (ix *TokenIndex) Len() int { return len(ix.m) }
