package service

import (
	"reflect"
	"testing"

	"compliancecheck-backend/models"
)

func TestMergeEvidenceStrings(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"both empty", "", "", ""},
		{"first empty", "", "quote B", "quote B"},
		{"second empty", "quote A", "", "quote A"},
		{"disjoint", "quote A", "quote B", "quote A; quote B"},
		{"overlapping", "quote A; quote B", "quote B; quote C", "quote A; quote B; quote C"},
		{"identical", "quote A; quote B", "quote A; quote B", "quote A; quote B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mergeEvidenceStrings(tt.a, tt.b); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeduplicateReport(t *testing.T) {
	report := &models.DocumentComplianceReport{
		DocumentName: "policy.pdf",
		DetailedResults: []models.ComplianceResult{
			{
				SectionType: "Business Standards", SourceName: "SI 2025", RegulationNumber: "3",
				Applicability: models.Applies, IsCompliant: models.CompliantYes,
				ComplianceEvidence: "first quote",
			},
			{
				SectionType: "Business Standards", SourceName: "SI 2025", RegulationNumber: "03",
				Applicability: models.Applies, IsCompliant: models.CompliantPartial,
				ComplianceEvidence: "first quote; second quote",
			},
			{
				SectionType: "Business Standards", SourceName: "SI 2025", RegulationNumber: "4",
				Applicability: models.DoesNotApply, IsCompliant: models.CompliantNA,
			},
		},
	}

	DeduplicateReport(report)

	if len(report.DetailedResults) != 2 {
		t.Fatalf("got %d results, want 2", len(report.DetailedResults))
	}

	first := report.DetailedResults[0]
	// First occurrence wins on verdict fields.
	if first.IsCompliant != models.CompliantYes {
		t.Errorf("IsCompliant = %q, want first occurrence's %q", first.IsCompliant, models.CompliantYes)
	}
	// Evidence from the duplicate is merged in without repeating quotes.
	if first.ComplianceEvidence != "first quote; second quote" {
		t.Errorf("ComplianceEvidence = %q", first.ComplianceEvidence)
	}

	if report.TotalRegulationsAnalyzed != 2 {
		t.Errorf("TotalRegulationsAnalyzed = %d, want 2", report.TotalRegulationsAnalyzed)
	}
}

func TestDeduplicateReportConflictingApplicability(t *testing.T) {
	report := &models.DocumentComplianceReport{
		DetailedResults: []models.ComplianceResult{
			{
				SectionType: "s", SourceName: "src", RegulationNumber: "1",
				Applicability: models.Applies, ComplianceEvidence: "quote A",
			},
			{
				SectionType: "s", SourceName: "src", RegulationNumber: "1",
				Applicability: models.DoesNotApply, ComplianceEvidence: "quote B",
			},
		},
	}

	DeduplicateReport(report)

	if len(report.DetailedResults) != 1 {
		t.Fatalf("got %d results, want 1", len(report.DetailedResults))
	}
	// Disagreeing duplicates do not merge evidence.
	if report.DetailedResults[0].ComplianceEvidence != "quote A" {
		t.Errorf("ComplianceEvidence = %q, want %q", report.DetailedResults[0].ComplianceEvidence, "quote A")
	}
}

func TestDeduplicateReportIdempotent(t *testing.T) {
	report := &models.DocumentComplianceReport{
		DetailedResults: []models.ComplianceResult{
			{SectionType: "s", SourceName: "src", RegulationNumber: "1", Applicability: models.Applies, ComplianceEvidence: "a"},
			{SectionType: "s", SourceName: "src", RegulationNumber: "1", Applicability: models.Applies, ComplianceEvidence: "b"},
			{SectionType: "s", SourceName: "src", RegulationNumber: "2", Applicability: models.Applies},
		},
	}

	DeduplicateReport(report)
	once := append([]models.ComplianceResult(nil), report.DetailedResults...)
	DeduplicateReport(report)

	if !reflect.DeepEqual(once, report.DetailedResults) {
		t.Errorf("second pass changed results:\nfirst:  %+v\nsecond: %+v", once, report.DetailedResults)
	}
}
