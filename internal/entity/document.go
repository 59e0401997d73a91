package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

// Document is one processed invoice passed between the pipeline, the
// exporters and the job ledger.
type Document struct {
	ID       uuid.UUID       `json:"id"`
	JobID    *uuid.UUID      `json:"job_id,omitempty"`
	Source   string          `json:"source"`
	Name     string          `json:"name"` // output base name, source file name without extension
	Format   string          `json:"format"`
	Profile  string          `json:"profile"`
	Pages    int             `json:"pages"`
	Text     string          `json:"-"`
	Record   *extract.Record `json:"record"`
	Duration time.Duration   `json:"duration"`
}
