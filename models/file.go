package models

import (
	"time"

	"github.com/google/uuid"
)

// FileKind classifies an uploaded artifact.
type FileKind string

const (
	FileKindDocument    FileKind = "document"    // processed client document JSON
	FileKindRegulations FileKind = "regulations" // extracted regulation set JSON
	FileKindGuidance    FileKind = "guidance"    // supervisory guidance JSON
	FileKindSkipConfig  FileKind = "skip_config" // skip filter configuration JSON
	FileKindReport      FileKind = "report"      // rendered analysis output
)

// ValidFileKind reports whether s names a known artifact kind.
func ValidFileKind(s string) bool {
	switch FileKind(s) {
	case FileKindDocument, FileKindRegulations, FileKindGuidance, FileKindSkipConfig, FileKindReport:
		return true
	}
	return false
}

// File represents an uploaded artifact tracked in the database; the bytes
// themselves live in the artifact store under StoragePath.
type File struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Kind        FileKind  `json:"kind"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}
