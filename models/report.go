package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportRecord is the stored form of a completed document analysis. The full
// report lives in a JSONB payload column; the scalar columns exist so lists
// and lookups never deserialize whole reports.
type ReportRecord struct {
	ID           uuid.UUID     `json:"id"`
	JobID        uuid.UUID     `json:"job_id"`
	DocumentID   uuid.UUID     `json:"document_id"`
	DocumentName string        `json:"document_name"`
	Payload      ReportPayload `json:"payload"`
	CreatedAt    time.Time     `json:"created_at"`
}
