package entity

import (
	"time"

	"github.com/google/uuid"
)

// Run is one batch invocation of the pipeline.
type Run struct {
	ID           uuid.UUID  `json:"id"`
	SourceDir    string     `json:"source_dir"`
	OutputDir    string     `json:"output_dir"`
	ModelVersion string     `json:"model_version"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	SheetsOK     int        `json:"sheets_ok"`
	SheetsSkip   int        `json:"sheets_skipped"`
	SheetsFail   int        `json:"sheets_failed"`
}
