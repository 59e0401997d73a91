package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

var testFields = []string{"invoice_id", "subtotal", "discount", "final_total"}

func testDocument(name string) *entity.Document {
	rec := extract.Assemble(
		[]extract.Field{
			{Name: "invoice_id", Value: "37425", Confidence: 0.96},
			{Name: "subtotal", Value: "100.00", Confidence: 0.91},
			{Name: "discount", Value: "", Confidence: 0},
		},
		[]extract.Field{{Name: "final_total", Value: "", Confidence: 1, Derived: true}},
	)
	return &entity.Document{
		ID:     uuid.New(),
		Source: "/in/" + name + ".pdf",
		Name:   name,
		Format: "pdf",
		Text:   "INVOICE # 37425\nSubtotal: 100.00",
		Record: rec,
	}
}

func TestWriter_WriteDocumentNested(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Directory: dir, WriteXLSX: true, WriteRawText: true}, testFields, nil)
	require.NoError(t, err)

	arts, err := w.WriteDocument(testDocument("inv-1"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "inv-1.json"), arts.JSON)
	assert.Equal(t, filepath.Join(dir, "inv-1.xlsx"), arts.XLSX)
	assert.Equal(t, filepath.Join(dir, "inv-1.txt"), arts.Text)

	data, err := os.ReadFile(arts.JSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"invoice_id\": {")

	var back extract.Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, testFields, back.Names())
	f, ok := back.Get("invoice_id")
	require.True(t, ok)
	assert.Equal(t, "37425", f.Value)
	assert.InDelta(t, 0.96, f.Confidence, 1e-9)

	text, err := os.ReadFile(arts.Text)
	require.NoError(t, err)
	assert.Equal(t, "INVOICE # 37425\nSubtotal: 100.00", string(text))
}

func TestWriter_WriteDocumentFlat(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Directory: dir, JSONLayout: LayoutFlat}, testFields, nil)
	require.NoError(t, err)

	arts, err := w.WriteDocument(testDocument("inv-2"))
	require.NoError(t, err)
	assert.Empty(t, arts.XLSX)
	assert.Empty(t, arts.Text)

	data, err := os.ReadFile(arts.JSON)
	require.NoError(t, err)
	var flat map[string]string
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, map[string]string{
		"invoice_id":  "37425",
		"subtotal":    "100.00",
		"discount":    "",
		"final_total": "",
	}, flat)
}

func TestWriter_SchemaRejectsMissingField(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Directory: dir}, append(testFields, "order_id"), nil)
	require.NoError(t, err)

	_, err = w.WriteDocument(testDocument("inv-3"))
	require.Error(t, err)
	assert.True(t, common.IsSerializationFailure(err))

	_, statErr := os.Stat(filepath.Join(dir, "inv-3.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriter_FailedStepLeavesNoArtifacts(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Directory: dir, WriteXLSX: true, WriteRawText: true}, testFields, nil)
	require.NoError(t, err)

	// a directory where the workbook should go makes its rename fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, "inv-4.xlsx"), 0o755))

	arts, err := w.WriteDocument(testDocument("inv-4"))
	require.Error(t, err)
	assert.True(t, common.IsSerializationFailure(err))
	assert.Contains(t, err.Error(), "write xlsx")
	assert.Equal(t, Artifacts{}, arts)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"inv-4.xlsx"}, names, "no json, txt or temp files remain")
}

func TestWriter_NilRecord(t *testing.T) {
	w, err := NewWriter(Options{Directory: t.TempDir()}, testFields, nil)
	require.NoError(t, err)
	_, err = w.WriteDocument(&entity.Document{Name: "x"})
	assert.True(t, common.IsSerializationFailure(err))
}

func TestWriter_WriteSummary(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Directory: dir}, testFields, nil)
	require.NoError(t, err)

	path, err := w.WriteSummary([]*entity.Document{testDocument("a"), nil, testDocument("b")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SummaryFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"source", "invoice_id", "subtotal", "discount", "final_total"}, rows[0])
	assert.Equal(t, "/in/a.pdf", rows[1][0])
	assert.Equal(t, "37425", rows[1][1])
	assert.Equal(t, "/in/b.pdf", rows[2][0])
}

func TestEncodeXLSX_HeaderAndValues(t *testing.T) {
	data, err := EncodeXLSX(testDocument("x").Record)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, recordSheet, f.GetSheetName(0))
	rows, err := f.GetRows(recordSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, testFields, rows[0])
	// GetRows trims trailing empty cells.
	assert.Equal(t, []string{"37425", "100.00"}, rows[1])
}
