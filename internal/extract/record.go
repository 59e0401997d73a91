package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one named value of an invoice record.
type Field struct {
	Name       string
	Value      string
	Confidence float64
	Derived    bool
}

// KV is a field without its confidence.
type KV struct {
	Name  string
	Value string
}

// Record is the ordered set of fields produced for one document: extracted
// fields in rule order, then derived fields in rule order.
type Record struct {
	fields []Field
	index  map[string]int
}

// Assemble builds a record. A name that already appears is skipped.
func Assemble(extracted, derived []Field) *Record {
	r := &Record{
		fields: make([]Field, 0, len(extracted)+len(derived)),
		index:  make(map[string]int, len(extracted)+len(derived)),
	}
	for _, group := range [][]Field{extracted, derived} {
		for _, f := range group {
			r.add(f)
		}
	}
	return r
}

func (r *Record) add(f Field) {
	if _, dup := r.index[f.Name]; dup {
		return
	}
	r.index[f.Name] = len(r.fields)
	r.fields = append(r.fields, f)
}

// Fields returns a copy of the fields in order.
func (r *Record) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

func (r *Record) Get(name string) (Field, bool) {
	i, ok := r.index[name]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

func (r *Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

func (r *Record) Len() int { return len(r.fields) }

// Flat drops confidences.
func (r *Record) Flat() []KV {
	out := make([]KV, len(r.fields))
	for i, f := range r.fields {
		out[i] = KV{Name: f.Name, Value: f.Value}
	}
	return out
}

func (r *Record) FlatMap() map[string]string {
	m := make(map[string]string, len(r.fields))
	for _, f := range r.fields {
		m[f.Name] = f.Value
	}
	return m
}

// MeanConfidence averages the confidences of extracted fields that matched.
func (r *Record) MeanConfidence() float64 {
	var sum float64
	var n int
	for _, f := range r.fields {
		if f.Derived || f.Value == "" {
			continue
		}
		sum += f.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// MatchedCount returns how many extracted fields have a value.
func (r *Record) MatchedCount() int {
	n := 0
	for _, f := range r.fields {
		if !f.Derived && f.Value != "" {
			n++
		}
	}
	return n
}

type fieldJSON struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// MarshalJSON writes {"name": {"value": ..., "confidence": ...}, ...} in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	return r.encode(func(f Field) any { return fieldJSON{Value: f.Value, Confidence: f.Confidence} })
}

// MarshalFlatJSON writes {"name": "value", ...} in field order.
func (r *Record) MarshalFlatJSON() ([]byte, error) {
	return r.encode(func(f Field) any { return f.Value })
}

func (r *Record) encode(value func(Field) any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(value(f))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the nested layout and keeps key order. The JSON
// carries no derivation flag, so every decoded field counts as extracted;
// use CompiledProfile.DecodeRecord to restore it.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	*r = Record{index: make(map[string]int)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected field name, got %v", tok)
		}
		var fj fieldJSON
		if err := dec.Decode(&fj); err != nil {
			return fmt.Errorf("record: field %q: %w", name, err)
		}
		r.add(Field{Name: name, Value: fj.Value, Confidence: fj.Confidence})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// DecodeRecord reads a nested record and marks the fields named by the
// profile's derived rules as derived.
func (cp *CompiledProfile) DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	for _, d := range cp.DerivedRules() {
		if i, ok := r.index[d.Name]; ok {
			r.fields[i].Derived = true
		}
	}
	return &r, nil
}
