package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultCurrencySymbols are stripped from OCR text unless a profile overrides them.
var DefaultCurrencySymbols = []string{"$", "£", "€"}

var (
	reHorizontalSpace = regexp.MustCompile(`[ \t\v]{2,}|[\t\v]`)
	reBlankLines      = regexp.MustCompile(`\n(?:[ \t\v]*\n)+`)
)

// Normalizer canonicalizes raw OCR text before field rules run.
// Normalize is idempotent.
type Normalizer struct {
	symbols *strings.Replacer
}

func NewNormalizer(symbols []string) *Normalizer {
	if symbols == nil {
		symbols = DefaultCurrencySymbols
	}
	pairs := make([]string, 0, len(symbols)*2)
	for _, s := range symbols {
		if s == "" {
			continue
		}
		pairs = append(pairs, s, "")
	}
	return &Normalizer{symbols: strings.NewReplacer(pairs...)}
}

// Normalize applies, in order: line-ending unification, currency symbol
// removal, horizontal whitespace collapse, blank-line collapse and NFC.
func (n *Normalizer) Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	s = n.symbols.Replace(s)
	s = reHorizontalSpace.ReplaceAllString(s, " ")
	s = reBlankLines.ReplaceAllString(s, "\n")
	return norm.NFC.String(s)
}

// Join concatenates page texts in page order, one line break apart, and
// normalizes the result.
func (n *Normalizer) Join(pages []string) string {
	return n.Normalize(strings.Join(pages, "\n"))
}

// Key maps a recognized word to the form it takes in normalized text so
// extracted values can be looked up in the token index.
func (n *Normalizer) Key(token string) string {
	return norm.NFC.String(strings.TrimSpace(n.symbols.Replace(token)))
}
