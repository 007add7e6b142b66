package service

import (
	"context"
	"strings"
	"testing"

	"compliancecheck-backend/models"
)

func viewWithCounts(yes, partial, no int, gapSummary string) *models.ConsolidatedRegulationView {
	return &models.ConsolidatedRegulationView{
		DocumentsVerifiedCount:  yes + partial + no,
		IsCompliantYesCount:     yes,
		IsCompliantPartialCount: partial,
		IsCompliantNoCount:      no,
		GapDescription:          gapSummary,
	}
}

func TestDeterminePriority(t *testing.T) {
	tests := []struct {
		name string
		view *models.ConsolidatedRegulationView
		want models.Priority
	}{
		{
			"over 30 percent non-compliant is high",
			viewWithCounts(1, 0, 1, "documentation missing"),
			models.PriorityHigh,
		},
		{
			"exactly 30 percent non-compliant stays below high",
			viewWithCounts(7, 0, 3, ""),
			models.PriorityLow,
		},
		{
			"critical keyword escalates to medium",
			viewWithCounts(4, 0, 1, "Exposure creates regulatory risk for the firm."),
			models.PriorityMedium,
		},
		{
			"weighted rate under 70 percent is medium",
			viewWithCounts(1, 2, 0, "minor wording issues"),
			models.PriorityMedium,
		},
		{
			"mostly compliant is low",
			viewWithCounts(9, 0, 1, "small gap in one appendix"),
			models.PriorityLow,
		},
		{
			"no applicable documents is low",
			viewWithCounts(0, 0, 0, ""),
			models.PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := determinePriority(tt.view); got != tt.want {
				t.Errorf("determinePriority() = %q, want %q", got, tt.want)
			}
		})
	}
}

func reportWithResults(docName string, results ...models.ComplianceResult) *models.DocumentComplianceReport {
	for i := range results {
		results[i].DocumentName = docName
	}
	report := &models.DocumentComplianceReport{
		DocumentName:    docName,
		DetailedResults: results,
	}
	report.Recompute()
	return report
}

func compliantResult(num models.RegulationNumber, title string, status models.ComplianceStatus) models.ComplianceResult {
	return models.ComplianceResult{
		SourceName:       "SI No. 100 of 2025",
		SectionType:      "Business Standards",
		RegulationNumber: num,
		RegulationTitle:  title,
		Applicability:    models.Applies,
		IsCompliant:      status,
	}
}

func notApplicableEntry(num models.RegulationNumber, title string) models.ComplianceResult {
	return models.ComplianceResult{
		SourceName:       "SI No. 100 of 2025",
		SectionType:      "Business Standards",
		RegulationNumber: num,
		RegulationTitle:  title,
		Applicability:    models.DoesNotApply,
		IsCompliant:      models.CompliantNA,
	}
}

func TestConsolidateCountsAcrossDocuments(t *testing.T) {
	reports := []*models.DocumentComplianceReport{
		reportWithResults("a.pdf",
			compliantResult("1", "Maintain records", models.CompliantYes),
			notApplicableEntry("2", "Lending limits"),
		),
		reportWithResults("b.pdf",
			compliantResult("1", "Maintain records", models.CompliantYes),
			notApplicableEntry("2", "Lending limits"),
		),
	}

	svc := NewConsolidationService(ConsolidationWithConfig(testConfig()))
	views := svc.Consolidate(context.Background(), reports, nil)
	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}

	byNumber := make(map[models.RegulationNumber]models.ConsolidatedRegulationView)
	for _, v := range views {
		byNumber[v.RegulationNumber] = v
	}

	records := byNumber["1"]
	if records.DocumentsVerifiedCount != 2 || records.IsCompliantYesCount != 2 {
		t.Errorf("regulation 1: verified=%d yes=%d, want 2/2",
			records.DocumentsVerifiedCount, records.IsCompliantYesCount)
	}
	if len(records.DocumentVerdicts) != 2 {
		t.Errorf("regulation 1: %d verdicts, want 2", len(records.DocumentVerdicts))
	}

	lending := byNumber["2"]
	if lending.DocumentsVerifiedCount != 0 {
		t.Errorf("regulation 2: verified=%d, want 0", lending.DocumentsVerifiedCount)
	}
	// Not-applicable verdicts are still listed, just not counted.
	if len(lending.DocumentVerdicts) != 2 {
		t.Errorf("regulation 2: %d verdicts, want 2", len(lending.DocumentVerdicts))
	}
	if lending.GapDescription != notApplicableSummary {
		t.Errorf("regulation 2: GapDescription = %q", lending.GapDescription)
	}
	if lending.Priority != models.PriorityLow {
		t.Errorf("regulation 2: Priority = %q", lending.Priority)
	}
}

func TestConsolidateCollapsesNumberForms(t *testing.T) {
	reports := []*models.DocumentComplianceReport{
		reportWithResults("a.pdf", compliantResult("03", "Maintain records", models.CompliantYes)),
		reportWithResults("b.pdf", compliantResult("3", "Maintain records", models.CompliantNo)),
	}

	svc := NewConsolidationService(ConsolidationWithConfig(testConfig()))
	views := svc.Consolidate(context.Background(), reports, nil)
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1 (number forms not collapsed)", len(views))
	}
	if views[0].DocumentsVerifiedCount != 2 {
		t.Errorf("DocumentsVerifiedCount = %d, want 2", views[0].DocumentsVerifiedCount)
	}
}

func TestConsolidateSortsByPriorityThenNumber(t *testing.T) {
	reports := []*models.DocumentComplianceReport{
		reportWithResults("a.pdf",
			compliantResult("10", "Ten", models.CompliantYes),
			compliantResult("2", "Two", models.CompliantNo),
			compliantResult("9", "Nine", models.CompliantYes),
		),
	}

	svc := NewConsolidationService(ConsolidationWithConfig(testConfig()))
	views := svc.Consolidate(context.Background(), reports, nil)
	if len(views) != 3 {
		t.Fatalf("got %d views, want 3", len(views))
	}

	// Regulation 2 is fully non-compliant, so it leads; the rest follow in
	// numeric order (9 before 10, not lexical).
	if views[0].RegulationNumber != "2" || views[0].Priority != models.PriorityHigh {
		t.Errorf("views[0] = %s/%s", views[0].RegulationNumber, views[0].Priority)
	}
	if views[1].RegulationNumber != "9" || views[2].RegulationNumber != "10" {
		t.Errorf("tail order = %s, %s; want 9, 10", views[1].RegulationNumber, views[2].RegulationNumber)
	}
}

func TestConsolidateEnrichesFromRegulationIndex(t *testing.T) {
	regs := []models.Regulation{
		{
			SourceName:       "SI No. 100 of 2025",
			SectionType:      "Business Standards",
			RegulationNumber: "1",
			RegulationTitle:  "Maintain records",
			RegulationText:   "A firm shall maintain records.",
			PartNumber:       "2",
			PartName:         "Conduct of Business",
			ChapterNumber:    "1",
			ChapterName:      "General Standards",
		},
	}
	reports := []*models.DocumentComplianceReport{
		reportWithResults("a.pdf", compliantResult("1", "Maintain records", models.CompliantYes)),
	}

	svc := NewConsolidationService(ConsolidationWithConfig(testConfig()))
	views := svc.Consolidate(context.Background(), reports, regs)
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1", len(views))
	}
	if views[0].PartNumber != "2" || views[0].ChapterNumber != "1" {
		t.Errorf("part/chapter = %s/%s, want 2/1", views[0].PartNumber, views[0].ChapterNumber)
	}
	if views[0].PartName != "Conduct of Business" {
		t.Errorf("PartName = %q", views[0].PartName)
	}
}

func TestSummarizeTextsWithoutClientJoins(t *testing.T) {
	svc := NewConsolidationService(ConsolidationWithConfig(testConfig()))
	view := &models.ConsolidatedRegulationView{DocumentsVerifiedCount: 2}

	got := svc.summarizeTexts(context.Background(), view, []string{"Gap one.", "Gap two."}, buildGapSummaryPrompt)
	if got != "Gap one. Gap two." {
		t.Errorf("summarizeTexts() = %q", got)
	}

	if got := svc.summarizeTexts(context.Background(), view, nil, buildGapSummaryPrompt); got != "" {
		t.Errorf("summarizeTexts(nil) = %q, want empty", got)
	}
}

func TestSummarizeTextsUsesClientForMultipleTexts(t *testing.T) {
	client := &fakeClient{respond: respondWith("• **Records:** Both documents lack retention schedules.")}
	svc := NewConsolidationService(
		ConsolidationWithLLMClient(client),
		ConsolidationWithConfig(testConfig()),
	)
	view := &models.ConsolidatedRegulationView{DocumentsVerifiedCount: 2}

	got := svc.summarizeTexts(context.Background(), view, []string{"Gap one.", "Gap two."}, buildGapSummaryPrompt)
	if !strings.HasPrefix(got, "• **Records:**") {
		t.Errorf("summarizeTexts() = %q", got)
	}
	if client.callCount() != 1 {
		t.Errorf("call count = %d, want 1", client.callCount())
	}

	// A single text never pays for a model call.
	got = svc.summarizeTexts(context.Background(), view, []string{"Only gap."}, buildGapSummaryPrompt)
	if got != "Only gap." || client.callCount() != 1 {
		t.Errorf("single text: got %q, calls %d", got, client.callCount())
	}
}
