package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(nil)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips currency", "Total: $90.00 £5 €7", "Total: 90.00 5 7"},
		{"collapses spaces", "Bill  To:\t\tAaron   Hawkins", "Bill To: Aaron Hawkins"},
		{"collapses blank lines", "a\n\n\nb\n \n\t\nc", "a\nb\nc"},
		{"crlf and form feed", "a\r\nb\rc\fd", "a\nb\nc\nd"},
		{"symbol between spaces", "Subtotal: $ 100.00", "Subtotal: 100.00"},
		{"nfc", "Café", "Café"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := NewNormalizer(nil)
	inputs := []string{
		"",
		"\n\n",
		"INVOICE # 37425\r\n\r\nDate:  January 15 2019\f\fBill To: $ Aaron\n \n",
		"  leading\t\tand trailing  \n\n\n",
		"a $\n$ \nb",
		"e$́   x",
		"Ship To: 10 Main St\n\n\nSpringfield\n \n \nIL",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestNormalizer_Join(t *testing.T) {
	n := NewNormalizer(nil)
	got := n.Join([]string{"INVOICE # 1\n", "\nTotal: $5.00"})
	assert.Equal(t, "INVOICE # 1\nTotal: 5.00", got)
}

func TestNormalizer_KeyMatchesNormalizedText(t *testing.T) {
	n := NewNormalizer(nil)
	assert.Equal(t, "100.00", n.Key(" $100.00 "))
	assert.Equal(t, "EUR12", n.Key("EUR12"))
}

func TestNormalizer_CustomSymbols(t *testing.T) {
	n := NewNormalizer([]string{"USD"})
	assert.Equal(t, "Total: 5 $", n.Normalize("Total: USD5 $"))
}
