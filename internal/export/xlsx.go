package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

const (
	recordSheet  = "Invoice"
	summarySheet = "Invoices"
)

// EncodeXLSX renders rec as a workbook with a header row of field names and
// one row of raw values. Confidences are not written.
func EncodeXLSX(rec *extract.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := useSheet(f, recordSheet); err != nil {
		return nil, err
	}

	for i, kv := range rec.Flat() {
		if err := setCell(f, recordSheet, i+1, 1, kv.Name); err != nil {
			return nil, err
		}
		if err := setCell(f, recordSheet, i+1, 2, kv.Value); err != nil {
			return nil, err
		}
	}
	if n := rec.Len(); n > 0 {
		last, _ := excelize.ColumnNumberToName(n)
		_ = f.SetColWidth(recordSheet, "A", last, 18)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeSummary renders one row per document: the source path followed by
// the record values under the given field headers.
func encodeSummary(fields []string, docs []*entity.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := useSheet(f, summarySheet); err != nil {
		return nil, err
	}

	headers := append([]string{"source"}, fields...)
	for i, h := range headers {
		if err := setCell(f, summarySheet, i+1, 1, h); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, d := range docs {
		if d == nil || d.Record == nil {
			continue
		}
		if err := setCell(f, summarySheet, 1, row, d.Source); err != nil {
			return nil, err
		}
		values := d.Record.FlatMap()
		for i, name := range fields {
			if err := setCell(f, summarySheet, i+2, row, values[name]); err != nil {
				return nil, err
			}
		}
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(summarySheet, "A", "A", 48) // path
	if len(fields) > 0 {
		last, _ := excelize.ColumnNumberToName(len(fields) + 1)
		_ = f.SetColWidth(summarySheet, "B", last, 18)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func useSheet(f *excelize.File, sheet string) error {
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	f.SetActiveSheet(index)
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellStr(sheet, cell, v)
}
