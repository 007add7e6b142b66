package service

import (
	"strings"

	"compliancecheck-backend/models"
)

// DeduplicateReport collapses duplicate results for the same regulation key
// within one document's report. Duplicates arise when a regulations file
// lists the same regulation number twice, or when "3" and 3 survive parsing
// as distinct entries. The first occurrence wins; when a duplicate agrees on
// applicability its evidence is merged in, so no quote is lost.
// Running it twice changes nothing.
func DeduplicateReport(report *models.DocumentComplianceReport) {
	if report == nil || len(report.DetailedResults) == 0 {
		return
	}

	seen := make(map[models.RegulationKey]int, len(report.DetailedResults))
	deduped := make([]models.ComplianceResult, 0, len(report.DetailedResults))

	for i := range report.DetailedResults {
		result := report.DetailedResults[i]
		key := result.Key()
		idx, dup := seen[key]
		if !dup {
			seen[key] = len(deduped)
			deduped = append(deduped, result)
			continue
		}

		kept := &deduped[idx]
		if kept.Applicability == result.Applicability {
			kept.ComplianceEvidence = mergeEvidenceStrings(kept.ComplianceEvidence, result.ComplianceEvidence)
			kept.ComplianceEvidenceWithPage = mergeEvidenceStrings(kept.ComplianceEvidenceWithPage, result.ComplianceEvidenceWithPage)
		}
	}

	report.DetailedResults = deduped
	report.Recompute()
}

// mergeEvidenceStrings unions two "; "-joined evidence lists, preserving the
// order quotes first appeared and dropping exact duplicates.
func mergeEvidenceStrings(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}

	seen := make(map[string]bool)
	var merged []string
	for _, list := range []string{a, b} {
		for _, quote := range strings.Split(list, "; ") {
			if quote == "" || seen[quote] {
				continue
			}
			seen[quote] = true
			merged = append(merged, quote)
		}
	}
	return strings.Join(merged, "; ")
}
