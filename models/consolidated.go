package models

// Priority is the remediation priority derived for a regulation across all
// analyzed documents.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// DocumentVerdict is one document's contribution to a consolidated view.
type DocumentVerdict struct {
	DocumentName       string           `json:"document_name"`
	Applicability      Applicability    `json:"applicability"`
	IsCompliant        ComplianceStatus `json:"is_compliant"`
	ComplianceEvidence string           `json:"compliance_evidence,omitempty"`
	GapDescription     string           `json:"gap_description,omitempty"`
	GapRecommendations string           `json:"gap_recommendations,omitempty"`
}

// ConsolidatedRegulationView aggregates every document's result for one
// regulation key. Counts cover only documents where the regulation applies or
// may apply; a regulation nobody is subject to carries Low priority.
type ConsolidatedRegulationView struct {
	SectionType             string            `json:"section_type"`
	SourceName              string            `json:"source_name"`
	PartNumber              string            `json:"part_number,omitempty"`
	PartName                string            `json:"part_name,omitempty"`
	ChapterNumber           string            `json:"chapter_number,omitempty"`
	ChapterName             string            `json:"chapter_name,omitempty"`
	RegulationNumber        RegulationNumber  `json:"regulation_number"`
	RegulationTitle         string            `json:"regulation_title"`
	RegulationText          string            `json:"regulation_text,omitempty"`
	Priority                Priority          `json:"priority"`
	DocumentsVerifiedCount  int               `json:"documents_verified_count"`
	IsCompliantYesCount     int               `json:"is_compliant_yes_count"`
	IsCompliantPartialCount int               `json:"is_compliant_partial_count"`
	IsCompliantNoCount      int               `json:"is_compliant_no_count"`
	GapDescription          string            `json:"gap_description"`
	GapRecommendations      string            `json:"gap_recommendations"`
	DocumentVerdicts        []DocumentVerdict `json:"document_verdicts"`
}
