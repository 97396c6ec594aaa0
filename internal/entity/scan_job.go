package entity

import (
	"time"

	"github.com/google/uuid"
)

// ScanJob records one run of the extraction engine over an uploaded or
// ingested image.
type ScanJob struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	CardID        *uuid.UUID `json:"card_id,omitempty"`
	SourcePath    string     `json:"source_path"`
	ContentHash   string     `json:"content_hash"`
	Status        string     `json:"status"`
	Stage         string     `json:"stage,omitempty"`
	AvgConfidence float64    `json:"avg_confidence"`
	OCRText       string     `json:"ocr_text,omitempty"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}
