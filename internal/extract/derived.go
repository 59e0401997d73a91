package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// ErrNumericParse reports a derived-field input that is missing or not a number.
// Derivation substitutes the rule's fallback value for it.
var ErrNumericParse = errors.New("numeric parse failure")

// NumericParseError names the input that could not be parsed.
type NumericParseError struct {
	Field string
	Value string
	Err   error
}

func (e *NumericParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field %q value %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("field %q value %q: not a number", e.Field, e.Value)
}

func (e *NumericParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNumericParse}
	}
	return []error{ErrNumericParse, e.Err}
}

// Op names a built-in derivation.
type Op string

const (
	OpDifference Op = "difference" // first input minus the others
	OpSum        Op = "sum"
)

// ComputeFunc combines parsed inputs. Returning an error wrapping
// ErrNumericParse selects the fallback value; any other error fails the
// document.
type ComputeFunc func(inputs []decimal.Decimal) (decimal.Decimal, error)

// DerivedRule computes a field from previously known fields.
type DerivedRule struct {
	Name     string      `yaml:"name" json:"name"`
	Op       Op          `yaml:"op,omitempty" json:"op,omitempty"`
	Inputs   []string    `yaml:"inputs" json:"inputs"`
	Fallback string      `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	Compute  ComputeFunc `yaml:"-" json:"-"`
}

var builtinOps = map[Op]ComputeFunc{
	OpDifference: func(in []decimal.Decimal) (decimal.Decimal, error) {
		out := in[0]
		for _, d := range in[1:] {
			out = out.Sub(d)
		}
		return out, nil
	},
	OpSum: func(in []decimal.Decimal) (decimal.Decimal, error) {
		return decimal.Sum(in[0], in[1:]...), nil
	},
}

// Derive evaluates rules in order against fields. Results are rounded to
// two decimal places and carry constants.MaxConfidence. Later rules may use
// earlier derived values as inputs.
func Derive(fields []Field, rules []DerivedRule) ([]Field, error) {
	values := make(map[string]string, len(fields)+len(rules))
	for _, f := range fields {
		values[f.Name] = f.Value
	}

	out := make([]Field, 0, len(rules))
	for _, r := range rules {
		value, err := evaluate(r, values)
		if err != nil {
			return nil, fmt.Errorf("derive %q: %w", r.Name, err)
		}
		values[r.Name] = value
		out = append(out, Field{Name: r.Name, Value: value, Confidence: constants.MaxConfidence, Derived: true})
	}
	return out, nil
}

func evaluate(r DerivedRule, values map[string]string) (string, error) {
	compute := r.Compute
	if compute == nil {
		fn, ok := builtinOps[r.Op]
		if !ok {
			return "", fmt.Errorf("unknown op %q", r.Op)
		}
		compute = fn
	}

	inputs := make([]decimal.Decimal, 0, len(r.Inputs))
	for _, name := range r.Inputs {
		d, err := parseDecimal(name, values[name])
		if err != nil {
			return r.Fallback, nil
		}
		inputs = append(inputs, d)
	}
	if len(inputs) == 0 {
		return r.Fallback, nil
	}

	res, err := compute(inputs)
	if err != nil {
		if errors.Is(err, ErrNumericParse) {
			return r.Fallback, nil
		}
		return "", err
	}
	return res.Round(2).StringFixed(2), nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return decimal.Zero, &NumericParseError{Field: field, Value: raw}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &NumericParseError{Field: field, Value: raw, Err: err}
	}
	return d, nil
}
