package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// Applicability is the tri-state Phase-1 verdict on whether a regulation is
// relevant to a document. The literal strings are the exact answer options
// the models are prompted with, so they round-trip through LLM output.
type Applicability string

const (
	Applies      Applicability = "Applies"
	DoesNotApply Applicability = "Does Not Apply"
	MayApply     Applicability = "May Apply - Requires Further Review"
)

// ParseApplicability maps free-form model output onto the canonical tri-state.
// Anything unrecognized resolves to MayApply: the cost of wrongly dismissing a
// regulation is higher than the cost of an extra review.
func ParseApplicability(s string) Applicability {
	switch normalized := strings.ToLower(strings.TrimSpace(s)); {
	case normalized == "applies":
		return Applies
	case strings.HasPrefix(normalized, "does not apply"):
		return DoesNotApply
	case strings.HasPrefix(normalized, "may apply"):
		return MayApply
	default:
		return MayApply
	}
}

// ComplianceStatus is the Phase-2 compliance verdict.
type ComplianceStatus string

const (
	CompliantYes     ComplianceStatus = "Yes"
	CompliantNo      ComplianceStatus = "No"
	CompliantPartial ComplianceStatus = "Partial"
	CompliantNA      ComplianceStatus = "N/A"
)

// ParseComplianceStatus maps free-form model output onto the canonical
// statuses, defaulting to Partial for anything ambiguous.
func ParseComplianceStatus(s string) ComplianceStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "compliant":
		return CompliantYes
	case "no", "non-compliant":
		return CompliantNo
	case "partial", "partially compliant":
		return CompliantPartial
	case "n/a", "na", "not applicable":
		return CompliantNA
	default:
		return CompliantPartial
	}
}

// ConfidenceScore is an ordinal self-assessment attached to every verdict.
type ConfidenceScore string

const (
	ConfidenceVeryLow  ConfidenceScore = "Very Low"
	ConfidenceLow      ConfidenceScore = "Low"
	ConfidenceMedium   ConfidenceScore = "Medium"
	ConfidenceHigh     ConfidenceScore = "High"
	ConfidenceVeryHigh ConfidenceScore = "Very High"
)

// Rank orders confidence scores; unknown values rank as Low.
func (c ConfidenceScore) Rank() int {
	switch ParseConfidenceScore(string(c)) {
	case ConfidenceVeryLow:
		return 0
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceHigh:
		return 3
	case ConfidenceVeryHigh:
		return 4
	}
	return 1
}

// ParseConfidenceScore normalizes free-form confidence strings.
func ParseConfidenceScore(s string) ConfidenceScore {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "very low", "verylow", "very_low":
		return ConfidenceVeryLow
	case "low":
		return ConfidenceLow
	case "medium", "moderate":
		return ConfidenceMedium
	case "high":
		return ConfidenceHigh
	case "very high", "veryhigh", "very_high":
		return ConfidenceVeryHigh
	default:
		return ConfidenceLow
	}
}

// ApplicabilityVerdict is the Phase-1 output for one (document, regulation)
// pair. Verdicts are written once per run and cached by content hash; they
// are never mutated, only superseded by clearing the cache.
type ApplicabilityVerdict struct {
	RegulationNumber RegulationNumber `json:"regulation_number"`
	RegulationTitle  string           `json:"regulation_title"`
	SectionType      string           `json:"section_type"`
	SourceName       string           `json:"source_name"`
	DocumentName     string           `json:"document_name"`
	Applicability    Applicability    `json:"applicability"`
	Reasoning        string           `json:"applicability_reasoning"`
	ConfidenceScore  ConfidenceScore  `json:"confidence_score"`
	// IsFallback marks verdicts produced by the fail-open path (transport or
	// parse failure) so operators can find regulations needing manual review.
	IsFallback bool `json:"is_fallback,omitempty"`
}

// NeedsEvaluation reports whether this verdict is handed to the Phase-2
// evaluator. The inclusion rule is deliberately conservative: besides Applies
// and MayApply, a DoesNotApply held with less than High confidence is handed
// over rather than stubbed out directly. This bias toward false positives is
// business policy.
func (v *ApplicabilityVerdict) NeedsEvaluation() bool {
	if v.Applicability != DoesNotApply {
		return true
	}
	return v.ConfidenceScore.Rank() < ConfidenceHigh.Rank()
}

// ComplianceResult is the final per-(document, regulation) record in a
// report. When Applicability is DoesNotApply, IsCompliant is always N/A and
// the evidence fields are empty: compliance is only meaningful where the
// regulation is relevant.
type ComplianceResult struct {
	RegulationNumber           RegulationNumber `json:"regulation_number"`
	RegulationTitle            string           `json:"regulation_title"`
	RegulationText             string           `json:"regulation_text,omitempty"`
	SectionType                string           `json:"section_type"`
	SourceName                 string           `json:"source_name"`
	DocumentName               string           `json:"document_name"`
	Applicability              Applicability    `json:"applicability"`
	ApplicabilityReasoning     string           `json:"applicability_reasoning"`
	IsCompliant                ComplianceStatus `json:"is_compliant"`
	ComplianceReasoning        string           `json:"compliance_reasoning"`
	ComplianceEvidence         string           `json:"compliance_evidence"`
	ComplianceEvidenceWithPage string           `json:"compliance_evidence_with_page"`
	EvidencePage               string           `json:"evidence_page"`
	GapDescription             string           `json:"gap_description"`
	GapRecommendations         string           `json:"gap_recommendations"`
	ConfidenceScore            ConfidenceScore  `json:"confidence_score"`
	IsFallback                 bool             `json:"is_fallback,omitempty"`
}

// Key returns the result's regulation identity key.
func (r *ComplianceResult) Key() RegulationKey {
	return RegulationKey{
		SectionType:      r.SectionType,
		SourceName:       r.SourceName,
		RegulationNumber: r.RegulationNumber.Canonical(),
	}
}

// ApplicabilitySummary counts Phase-1 outcomes across a report.
type ApplicabilitySummary struct {
	Applies      int `json:"applies"`
	MayApply     int `json:"may_apply"`
	DoesNotApply int `json:"does_not_apply"`
}

// ComplianceSummary counts Phase-2 outcomes across a report, excluding
// regulations that do not apply.
type ComplianceSummary struct {
	Compliant    int `json:"compliant"`
	Partial      int `json:"partial"`
	NonCompliant int `json:"non_compliant"`
}

// ChunkStats records how much chunk-level evidence mining Phase 2 performed.
// Observability only; never feeds back into verdicts.
type ChunkStats struct {
	TotalChunksProcessed    int `json:"total_chunks_processed"`
	AdditionalEvidenceFound int `json:"additional_evidence_found"`
}

// ModelUsage records how many calls each phase issued for a document.
type ModelUsage struct {
	Phase1Calls     int        `json:"phase1_calls"`
	Phase2Calls     int        `json:"phase2_calls"`
	ChunkProcessing ChunkStats `json:"chunk_processing"`
}

// DocumentComplianceReport is the per-document output of a full analysis run:
// exactly one ComplianceResult per regulation considered (the input set minus
// explicitly skipped regulations). The summary blocks are views derived from
// DetailedResults via Recompute, never independent truth.
type DocumentComplianceReport struct {
	DocumentName             string                   `json:"document_name"`
	TotalRegulationsAnalyzed int                      `json:"total_regulations_analyzed"`
	SkippedRegulations       int                      `json:"skipped_regulations"`
	ApplicabilitySummary     ApplicabilitySummary     `json:"applicability_summary"`
	ComplianceSummary        ComplianceSummary        `json:"compliance_summary"`
	ModelUsage               ModelUsage               `json:"model_usage"`
	FallbackCount            int                      `json:"fallback_count"`
	CompliancePercentage     float64                  `json:"compliance_percentage"`
	DetailedResults          []ComplianceResult       `json:"detailed_results"`
}

// Recompute rederives every aggregate field from DetailedResults.
func (r *DocumentComplianceReport) Recompute() {
	summary := ApplicabilitySummary{}
	compliance := ComplianceSummary{}
	fallbacks := 0

	for i := range r.DetailedResults {
		result := &r.DetailedResults[i]
		switch result.Applicability {
		case Applies:
			summary.Applies++
		case MayApply:
			summary.MayApply++
		case DoesNotApply:
			summary.DoesNotApply++
		}
		if result.Applicability != DoesNotApply {
			switch result.IsCompliant {
			case CompliantYes:
				compliance.Compliant++
			case CompliantPartial:
				compliance.Partial++
			case CompliantNo:
				compliance.NonCompliant++
			}
		}
		if result.IsFallback {
			fallbacks++
		}
	}

	r.TotalRegulationsAnalyzed = len(r.DetailedResults)
	r.ApplicabilitySummary = summary
	r.ComplianceSummary = compliance
	r.FallbackCount = fallbacks

	applicable := summary.Applies + summary.MayApply
	if applicable > 0 {
		r.CompliancePercentage = float64(compliance.Compliant) / float64(applicable) * 100
	} else {
		r.CompliancePercentage = 0
	}
}

// ReportPayload wraps DocumentComplianceReport for JSONB storage.
type ReportPayload DocumentComplianceReport

// Value implements driver.Valuer for JSONB
func (p ReportPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB
func (p *ReportPayload) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, p)
}
