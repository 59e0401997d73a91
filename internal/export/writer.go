package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// JSON layouts.
const (
	LayoutNested = "nested"
	LayoutFlat   = "flat"
)

// SummaryFile is the batch workbook name inside the output directory.
const SummaryFile = "summary.xlsx"

type Options struct {
	Directory    string
	JSONLayout   string // nested | flat
	WriteXLSX    bool
	WriteRawText bool
}

// OptionsFromAppConfig maps the application output section onto Options.
func OptionsFromAppConfig(c common.OutputConfig) Options {
	return Options{
		Directory:    c.Directory,
		JSONLayout:   c.JSONLayout,
		WriteXLSX:    c.WriteXLSX,
		WriteRawText: c.WriteRawText,
	}
}

// Artifacts lists the files written for one document.
type Artifacts struct {
	JSON string
	XLSX string
	Text string
}

// Writer persists assembled records. Every record is validated against
// the schema derived from the profile's field names before anything is
// written.
type Writer struct {
	opts   Options
	fields []string
	schema *jsonschema.Schema
	logger *slog.Logger
}

func NewWriter(opts Options, fields []string, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Directory == "" {
		opts.Directory = "output"
	}
	if opts.JSONLayout == "" {
		opts.JSONLayout = LayoutNested
	}
	schema, err := compileSchema(RecordSchema(fields))
	if err != nil {
		return nil, err
	}
	return &Writer{opts: opts, fields: append([]string(nil), fields...), schema: schema, logger: logger}, nil
}

// WriteDocument writes <name>.json and, when enabled, <name>.xlsx and
// <name>.txt. Any failure is a serialization failure of this document only.
func (w *Writer) WriteDocument(doc *entity.Document) (Artifacts, error) {
	start := time.Now()
	var arts Artifacts
	if doc == nil || doc.Record == nil {
		return arts, common.SerializationFailure("write document", fmt.Errorf("no record"))
	}

	nested, err := json.Marshal(doc.Record)
	if err != nil {
		return arts, common.SerializationFailure("encode record", err)
	}
	if err := validateJSON(w.schema, nested); err != nil {
		return arts, common.SerializationFailure("validate record", err)
	}

	payload := nested
	if w.opts.JSONLayout == LayoutFlat {
		if payload, err = doc.Record.MarshalFlatJSON(); err != nil {
			return arts, common.SerializationFailure("encode record", err)
		}
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, payload, "", "    "); err != nil {
		return arts, common.SerializationFailure("indent record", err)
	}
	pretty.WriteByte('\n')

	if err := os.MkdirAll(w.opts.Directory, 0o755); err != nil {
		return arts, common.SerializationFailure("create output directory", err)
	}

	files := []pendingFile{{path: w.path(doc.Name, ".json"), data: pretty.Bytes(), step: "write json"}}
	arts.JSON = files[0].path

	if w.opts.WriteXLSX {
		data, err := EncodeXLSX(doc.Record)
		if err != nil {
			return Artifacts{}, common.SerializationFailure("encode xlsx", err)
		}
		arts.XLSX = w.path(doc.Name, ".xlsx")
		files = append(files, pendingFile{path: arts.XLSX, data: data, step: "write xlsx"})
	}

	if w.opts.WriteRawText {
		arts.Text = w.path(doc.Name, ".txt")
		files = append(files, pendingFile{path: arts.Text, data: []byte(doc.Text), step: "write raw text"})
	}

	if err := writeAll(files); err != nil {
		return Artifacts{}, err
	}

	w.logger.Info("export.document.ok",
		"document_id", doc.ID,
		"json", arts.JSON,
		"xlsx", arts.XLSX,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return arts, nil
}

// WriteSummary writes one workbook row per document and returns its path.
func (w *Writer) WriteSummary(docs []*entity.Document) (string, error) {
	data, err := encodeSummary(w.fields, docs)
	if err != nil {
		return "", common.SerializationFailure("encode summary", err)
	}
	if err := os.MkdirAll(w.opts.Directory, 0o755); err != nil {
		return "", common.SerializationFailure("create output directory", err)
	}
	path := filepath.Join(w.opts.Directory, SummaryFile)
	if err := writeFileAtomic(path, data); err != nil {
		return "", common.SerializationFailure("write summary", err)
	}
	w.logger.Info("export.summary.ok", "path", path, "rows", len(docs))
	return path, nil
}

func (w *Writer) path(name, ext string) string {
	return filepath.Join(w.opts.Directory, name+ext)
}

// pendingFile is one artifact of a document waiting to be written.
type pendingFile struct {
	path string
	data []byte
	step string
	tmp  string
}

// writeAll stages every file in a temp file next to its destination and
// renames them into place only once all are staged. A failure removes the
// temps and any destination already renamed, so a document either has all
// of its artifacts on disk or none.
func writeAll(files []pendingFile) error {
	defer func() {
		for _, f := range files {
			if f.tmp != "" {
				_ = os.Remove(f.tmp)
			}
		}
	}()

	for i := range files {
		tmp, err := stageFile(files[i].path, files[i].data)
		if err != nil {
			return common.SerializationFailure(files[i].step, err)
		}
		files[i].tmp = tmp
	}

	for i := range files {
		if err := os.Rename(files[i].tmp, files[i].path); err != nil {
			for _, done := range files[:i] {
				_ = os.Remove(done.path)
			}
			return common.SerializationFailure(files[i].step, err)
		}
		files[i].tmp = ""
	}
	return nil
}

// writeFileAtomic writes to a temp file in the same directory and renames
// it into place so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := stageFile(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func stageFile(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
