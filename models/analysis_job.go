package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AnalysisJobStatus represents the status of an analysis job
type AnalysisJobStatus string

const (
	JobStatusPending    AnalysisJobStatus = "pending"
	JobStatusInProgress AnalysisJobStatus = "in_progress"
	JobStatusCompleted  AnalysisJobStatus = "completed"
	JobStatusFailed     AnalysisJobStatus = "failed"
)

// AnalysisStep represents a step in the analysis pipeline
type AnalysisStep struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // "pending", "in_progress", "completed", "failed"
	Description string `json:"description,omitempty"`
}

// AnalysisSteps represents a list of analysis steps
type AnalysisSteps []AnalysisStep

// Value implements driver.Valuer for JSONB
func (s AnalysisSteps) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *AnalysisSteps) Scan(value interface{}) error {
	if value == nil {
		*s = make(AnalysisSteps, 0)
		return nil
	}

	// Handle different types that pgx might return for JSONB
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*s = make(AnalysisSteps, 0)
		return nil
	}

	if len(bytes) == 0 {
		*s = make(AnalysisSteps, 0)
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// AnalysisJob tracks one asynchronous compliance analysis of a stored
// document against a regulation set. The HTTP trigger returns immediately
// with the job ID; the pipeline itself runs in the background and can take
// minutes for large regulation sets.
type AnalysisJob struct {
	ID                uuid.UUID         `json:"id"`
	DocumentID        uuid.UUID         `json:"document_id"`
	RegulationsFileID uuid.UUID         `json:"regulations_file_id"`
	SkipConfigFileID  *uuid.UUID        `json:"skip_config_file_id,omitempty"`
	GuidanceFileID    *uuid.UUID        `json:"guidance_file_id,omitempty"`
	Status            AnalysisJobStatus `json:"status"`
	CurrentStep       *string           `json:"current_step,omitempty"`
	Steps             AnalysisSteps     `json:"steps"`
	ErrorMessage      *string           `json:"error_message,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}
