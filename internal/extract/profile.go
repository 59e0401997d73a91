package extract

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "invoice"

// FieldRule locates one named field in normalized text.
// Groups lists capture groups whose trimmed contents are joined with
// Separator; when empty the first group is used (or the whole match when
// the pattern has no groups).
type FieldRule struct {
	Name      string `yaml:"name" json:"name"`
	Pattern   string `yaml:"pattern" json:"pattern"`
	Groups    []int  `yaml:"groups,omitempty" json:"groups,omitempty"`
	Separator string `yaml:"separator,omitempty" json:"separator,omitempty"`
}

// Profile is a named, versioned set of extraction and derivation rules.
type Profile struct {
	Name        string        `yaml:"name" json:"name"`
	Version     string        `yaml:"version,omitempty" json:"version,omitempty"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Symbols     []string      `yaml:"symbols,omitempty" json:"symbols,omitempty"`
	Fields      []FieldRule   `yaml:"fields" json:"fields"`
	Derived     []DerivedRule `yaml:"derived,omitempty" json:"derived,omitempty"`
}

// FieldNames returns extracted then derived field names in record order.
func (p *Profile) FieldNames() []string {
	names := make([]string, 0, len(p.Fields)+len(p.Derived))
	for _, f := range p.Fields {
		names = append(names, f.Name)
	}
	for _, d := range p.Derived {
		names = append(names, d.Name)
	}
	return names
}

const lineItemPattern = `(\d+)\s+([\d.]+)\s+([\d.]+)`

var builtinProfiles = map[string]func() *Profile{
	"invoice": func() *Profile {
		return &Profile{
			Name:        "invoice",
			Version:     "1",
			Description: "Single-line-item invoices with billing, shipping and totals",
			Fields: []FieldRule{
				{Name: "invoice_id", Pattern: `(?i)(?:INVOICE\s*)?#\s*(\d+)`},
				{Name: "date", Pattern: `Date:\s*([A-Za-z]+\s+\d{1,2}\s+\d{4})`},
				{Name: "bill_to", Pattern: `Bill To:\s*(.*)`},
				{Name: "ship_to", Pattern: `Ship To:\s*(.*)\n(.*)\n(.*)`, Groups: []int{1, 2, 3}, Separator: ", "},
				{Name: "ship_mode", Pattern: `Ship Mode:\s*(.*)`},
				{Name: "item_name", Pattern: `Item\s+Quantity\s+Rate\s+Amount\n(.*)`},
				{Name: "rate", Pattern: lineItemPattern, Groups: []int{2}},
				{Name: "amount", Pattern: lineItemPattern, Groups: []int{3}},
				{Name: "subtotal", Pattern: `Subtotal:\s*([\d.]+)`},
				{Name: "discount", Pattern: `Discount[^:\n]*:\s*([\d.]+)`},
				{Name: "shipping", Pattern: `Shipping:\s*([\d.]+)`},
				{Name: "total", Pattern: `Total:\s*([\d.]+)`},
				{Name: "balance_due", Pattern: `Balance Due:\s*([\d.]+)`},
				{Name: "order_id", Pattern: `Order ID\s*:\s*([A-Za-z0-9-]+)`},
			},
			Derived: []DerivedRule{
				{Name: "final_total", Op: OpDifference, Inputs: []string{"subtotal", "discount"}},
			},
		}
	},
	"invoice-summary": func() *Profile {
		return &Profile{
			Name:        "invoice-summary",
			Version:     "1",
			Description: "Header and totals only, human-readable field names",
			Fields: []FieldRule{
				{Name: "Invoice Number", Pattern: `#\s*(\d+)`},
				{Name: "Date", Pattern: `Date:\s*([A-Za-z]+\s+\d{1,2}\s+\d{4})`},
				{Name: "Customer", Pattern: `Bill To:\s*(.*)`},
				{Name: "Ship Mode", Pattern: `Ship Mode:\s*(.*)`},
				{Name: "Balance Due", Pattern: `Balance Due:\s*([\d.]+)`},
				{Name: "Subtotal", Pattern: `Subtotal:\s*([\d.]+)`},
				{Name: "Discount", Pattern: `Discount.*:\s*([\d.]+)`},
				{Name: "Shipping", Pattern: `Shipping:\s*([\d.]+)`},
				{Name: "Total", Pattern: `Total:\s*([\d.]+)`},
				{Name: "Order ID", Pattern: `Order ID\s*:\s*([A-Za-z0-9-]+)`},
			},
			Derived: []DerivedRule{
				{Name: "Final Total", Op: OpDifference, Inputs: []string{"Subtotal", "Discount"}},
			},
		}
	},
}

// BuiltinNames lists the built-in profiles in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for name := range builtinProfiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Builtin returns a fresh copy of a built-in profile.
func Builtin(name string) (*Profile, error) {
	mk, ok := builtinProfiles[name]
	if !ok {
		return nil, common.NewAppError(common.CodeProfile, fmt.Sprintf("unknown profile %q", name), common.ErrInvalidInput)
	}
	return mk(), nil
}

// ParseProfile decodes a YAML profile. Unknown keys are rejected.
func ParseProfile(data []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, common.NewAppError(common.CodeProfile, "decode profile", err)
	}
	return &p, nil
}

// LoadProfileFile reads and decodes a YAML profile from path.
func LoadProfileFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError(common.CodeProfile, "read profile "+path, err)
	}
	return ParseProfile(data)
}

// EncodeYAML renders p the way LoadProfileFile expects it.
func (p *Profile) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
