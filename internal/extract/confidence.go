package extract

import "strings"

// FieldConfidence is the highest index confidence among the whitespace
// separated words of value. It is 0 when no word is indexed.
func FieldConfidence(idx *TokenIndex, value string) float64 {
	best := 0.0
	for _, w := range strings.Fields(value) {
		if c, ok := idx.Lookup(w); ok && c > best {
			best = c
		}
	}
	return best
}

// Attribute pairs every raw field with its confidence.
func Attribute(idx *TokenIndex, raw []RawField) []Field {
	out := make([]Field, 0, len(raw))
	for _, r := range raw {
		out = append(out, Field{Name: r.Name, Value: r.Value, Confidence: FieldConfidence(idx, r.Value)})
	}
	return out
}
