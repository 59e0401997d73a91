package extract

import "strings"

// RawField is an extracted value before confidence attribution.
type RawField struct {
	Name  string
	Value string
}

// Extract applies every rule to text, in declaration order. Each rule uses
// its first match; a rule that does not match yields an empty value.
func (cp *CompiledProfile) Extract(text string) []RawField {
	out := make([]RawField, 0, len(cp.rules))
	for _, r := range cp.rules {
		out = append(out, RawField{Name: r.name, Value: r.apply(text)})
	}
	return out
}

func (r compiledRule) apply(text string) string {
	m := r.re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if len(r.groups) == 1 {
		return strings.TrimSpace(m[r.groups[0]])
	}
	parts := make([]string, 0, len(r.groups))
	for _, g := range r.groups {
		parts = append(parts, strings.TrimSpace(m[g]))
	}
	return strings.TrimSpace(strings.Join(parts, r.separator))
}

// Parse runs extraction, confidence attribution and derivation over
// normalized text and assembles the record. Only derivation errors other
// than ErrNumericParse are returned.
func (cp *CompiledProfile) Parse(idx *TokenIndex, normalized string) (*Record, error) {
	fields := Attribute(idx, cp.Extract(normalized))
	derived, err := Derive(fields, cp.derived)
	if err != nil {
		return nil, err
	}
	return Assemble(fields, derived), nil
}
