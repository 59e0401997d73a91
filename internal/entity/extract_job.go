package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractJob is one row of the extract_job ledger.
type ExtractJob struct {
	ID             uuid.UUID       `json:"id"`
	SourcePath     string          `json:"source_path"`
	Format         string          `json:"format"`
	Profile        string          `json:"profile"`
	Status         string          `json:"status"`
	Pages          int             `json:"pages"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	MeanConfidence *float64        `json:"mean_confidence,omitempty"`
	RecordJSON     json.RawMessage `json:"record_json,omitempty"`
}
