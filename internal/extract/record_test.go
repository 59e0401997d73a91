package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *Record {
	return Assemble(
		[]Field{
			{Name: "invoice_id", Value: "37425", Confidence: 0.963},
			{Name: "date", Value: "January 15 2019", Confidence: 0.1 + 0.2},
			{Name: "ship_to", Value: "", Confidence: 0},
		},
		[]Field{{Name: "final_total", Value: "90.00", Confidence: 1.0, Derived: true}},
	)
}

func TestAssemble_OrderAndLookup(t *testing.T) {
	rec := sampleRecord()
	assert.Equal(t, []string{"invoice_id", "date", "ship_to", "final_total"}, rec.Names())
	assert.Equal(t, 4, rec.Len())

	f, ok := rec.Get("date")
	require.True(t, ok)
	assert.Equal(t, "January 15 2019", f.Value)

	_, ok = rec.Get("nope")
	assert.False(t, ok)
}

func TestAssemble_SkipsDuplicateNames(t *testing.T) {
	rec := Assemble([]Field{{Name: "a", Value: "1"}}, []Field{{Name: "a", Value: "2", Derived: true}})
	assert.Equal(t, 1, rec.Len())
	f, _ := rec.Get("a")
	assert.Equal(t, "1", f.Value)
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	rec := sampleRecord()
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, rec.Names(), back.Names())
	for _, want := range rec.Fields() {
		got, ok := back.Get(want.Name)
		require.True(t, ok, want.Name)
		assert.Equal(t, want.Value, got.Value)
		assert.Equal(t, want.Confidence, got.Confidence)
	}
}

func TestRecord_NestedJSONLayout(t *testing.T) {
	rec := Assemble([]Field{{Name: "invoice_id", Value: "37425", Confidence: 0.5}}, nil)
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"invoice_id":{"value":"37425","confidence":0.5}}`, string(data))
}

func TestRecord_FlatJSONKeepsOrder(t *testing.T) {
	data, err := sampleRecord().MarshalFlatJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"invoice_id":"37425","date":"January 15 2019","ship_to":"","final_total":"90.00"}`, string(data))
}

func TestRecord_UnmarshalRejectsNonObject(t *testing.T) {
	var r Record
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &r))
}

func TestRecord_MeanConfidence(t *testing.T) {
	rec := Assemble([]Field{
		{Name: "a", Value: "x", Confidence: 0.4},
		{Name: "b", Value: "y", Confidence: 0.8},
		{Name: "c", Value: "", Confidence: 0},
	}, []Field{{Name: "d", Value: "1.00", Confidence: 1, Derived: true}})
	assert.InDelta(t, 0.6, rec.MeanConfidence(), 1e-9)
	assert.Equal(t, 2, rec.MatchedCount())
}

func TestDecodeRecord_RestoresDerivedFlag(t *testing.T) {
	p, err := Builtin(DefaultProfile)
	require.NoError(t, err)
	cp, err := CompileProfile(p)
	require.NoError(t, err)

	rec := Assemble(
		[]Field{
			{Name: "invoice_id", Value: "37425", Confidence: 0.9},
			{Name: "subtotal", Value: "100.00", Confidence: 0.5},
		},
		[]Field{{Name: "final_total", Value: "90.00", Confidence: 1.0, Derived: true}},
	)
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var plain Record
	require.NoError(t, json.Unmarshal(data, &plain))
	f, _ := plain.Get("final_total")
	assert.False(t, f.Derived, "plain decoding has no derivation flag")

	back, err := cp.DecodeRecord(data)
	require.NoError(t, err)
	f, ok := back.Get("final_total")
	require.True(t, ok)
	assert.True(t, f.Derived)
	assert.Equal(t, rec.MatchedCount(), back.MatchedCount())
	assert.InDelta(t, rec.MeanConfidence(), back.MeanConfidence(), 1e-9)

	_, err = cp.DecodeRecord([]byte(`"x"`))
	assert.Error(t, err)
}
